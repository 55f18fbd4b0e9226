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

// Instruction is a per-mnemonic-pass entry: partially resolved in the
// mnemonic pass (size, address), fully resolved in the code pass
// (opcode/operand0/operand1).
type Instruction struct {
	IsRomAddress    bool
	IsCustomAddress bool
	Size            ByteSize
	Opcode          uint8
	Operand0        uint8
	Operand1        uint8
	Address         uint16
	OpcodeType      OpcodeType
}

// ByteCode is one emitted byte, the assembler's final output unit.
type ByteCode struct {
	IsRomAddress    bool
	IsCustomAddress bool
	Data            uint8
	Address         uint16
}

// CallTableEntry binds a one-byte indirection operand to a vCPU CALL
// target address; the table grows downward from a configurable base.
type CallTableEntry struct {
	Operand       uint8
	TargetAddress uint16
}
