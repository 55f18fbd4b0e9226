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
	"bufio"
	"os"
)

// writeGt1 drains NextAssembledByte and writes the segmented .gt1
// container: each segment starts with its 16-bit little-endian
// address and a 1-byte length, followed by that many data bytes; the
// stream ends with a zero-length sentinel segment. A new segment begins
// wherever is_custom_address starts one, matching the iterator's
// contract.
func writeGt1(a *Assembler, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	var segment []byte
	var segmentAddress uint16
	haveSegment := false

	flush := func() error {
		if !haveSegment {
			return nil
		}
		if err := w.WriteByte(byte(segmentAddress & 0x00FF)); err != nil {
			return err
		}
		if err := w.WriteByte(byte(segmentAddress >> 8)); err != nil {
			return err
		}
		if err := w.WriteByte(byte(len(segment))); err != nil {
			return err
		}
		if _, err := w.Write(segment); err != nil {
			return err
		}
		segment = nil
		return nil
	}

	for {
		bc, done := a.NextAssembledByte()
		if done {
			break
		}

		if bc.IsCustomAddress {
			if err := flush(); err != nil {
				return err
			}
			segmentAddress = bc.Address
			haveSegment = true
		}

		segment = append(segment, bc.Data)
		if len(segment) == 255 {
			if err := flush(); err != nil {
				return err
			}
			segmentAddress += 255
			haveSegment = true
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := w.WriteByte(0x00); err != nil {
		return err
	}

	return w.Flush()
}
