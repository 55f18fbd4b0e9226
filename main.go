// Copyright 2026 gigatron-asm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var command = &cobra.Command{
	Use:  "gigatron-asm source [-o output.gt1] [-I include_path] [-s start_address]",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.PersistentFlags().GetString("output")
		includePath, _ := cmd.PersistentFlags().GetString("include-path")
		startAddress, _ := cmd.PersistentFlags().GetUint16("start-address")

		asm := NewAssembler(nil, os.Stderr)
		asm.SetIncludePath(includePath)

		if err := asm.Assemble(args[0], startAddress); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "assembled %d bytes starting at 0x%04X\n", len(asm.byteCode), asm.StartAddress())
		}

		if err := writeGt1(asm, output); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	command.PersistentFlags().StringP("output", "o", "a.gt1", "output ROM image path")
	command.PersistentFlags().StringP("include-path", "I", "", "prefix applied to every %include target")
	command.PersistentFlags().Uint16P("start-address", "s", defaultStartAddress, "vCPU RAM address the first instruction is placed at")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "if set, increase verbosity level")
}

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
