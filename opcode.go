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

import "strings"

// ByteSize is the encoded size of an instruction in bytes. BadSize marks
// an unrecognized mnemonic.
type ByteSize int

const (
	BadSize    ByteSize = -1
	OneByte    ByteSize = 1
	TwoBytes   ByteSize = 2
	ThreeBytes ByteSize = 3
)

// OpcodeType is the instruction family.
type OpcodeType int

const (
	ReservedDB OpcodeType = iota
	ReservedDW
	ReservedDBR
	ReservedDWR
	VCpu
	Native
)

// InstructionType is the fixed mapping from mnemonic to encoding
// metadata, returned by getOpcode.
type InstructionType struct {
	Opcode     uint8
	Branch     uint8
	ByteSize   ByteSize
	OpcodeType OpcodeType
}

// opcodeTable maps each mnemonic to its encoding: vCPU instructions,
// the shared-opcode branch family, reserved pseudo-ops, and native
// instructions.
var opcodeTable = map[string]InstructionType{
	// Gigatron vCPU instructions
	"ST":    {Opcode: 0x5E, ByteSize: TwoBytes, OpcodeType: VCpu},
	"STW":   {Opcode: 0x2B, ByteSize: TwoBytes, OpcodeType: VCpu},
	"STLW":  {Opcode: 0xEC, ByteSize: TwoBytes, OpcodeType: VCpu},
	"LD":    {Opcode: 0x1A, ByteSize: TwoBytes, OpcodeType: VCpu},
	"LDI":   {Opcode: 0x59, ByteSize: TwoBytes, OpcodeType: VCpu},
	"LDWI":  {Opcode: 0x11, ByteSize: ThreeBytes, OpcodeType: VCpu},
	"LDW":   {Opcode: 0x21, ByteSize: TwoBytes, OpcodeType: VCpu},
	"LDLW":  {Opcode: 0xEE, ByteSize: TwoBytes, OpcodeType: VCpu},
	"ADDW":  {Opcode: 0x99, ByteSize: TwoBytes, OpcodeType: VCpu},
	"SUBW":  {Opcode: 0xB8, ByteSize: TwoBytes, OpcodeType: VCpu},
	"ADDI":  {Opcode: 0xE3, ByteSize: TwoBytes, OpcodeType: VCpu},
	"SUBI":  {Opcode: 0xE6, ByteSize: TwoBytes, OpcodeType: VCpu},
	"LSLW":  {Opcode: 0xE9, ByteSize: OneByte, OpcodeType: VCpu},
	"INC":   {Opcode: 0x93, ByteSize: TwoBytes, OpcodeType: VCpu},
	"ANDI":  {Opcode: 0x82, ByteSize: TwoBytes, OpcodeType: VCpu},
	"ANDW":  {Opcode: 0xF8, ByteSize: TwoBytes, OpcodeType: VCpu},
	"ORI":   {Opcode: 0x88, ByteSize: TwoBytes, OpcodeType: VCpu},
	"ORW":   {Opcode: 0xFA, ByteSize: TwoBytes, OpcodeType: VCpu},
	"XORI":  {Opcode: 0x8C, ByteSize: TwoBytes, OpcodeType: VCpu},
	"XORW":  {Opcode: 0xFC, ByteSize: TwoBytes, OpcodeType: VCpu},
	"PEEK":  {Opcode: 0xAD, ByteSize: OneByte, OpcodeType: VCpu},
	"DEEK":  {Opcode: 0xF6, ByteSize: OneByte, OpcodeType: VCpu},
	"POKE":  {Opcode: 0xF0, ByteSize: TwoBytes, OpcodeType: VCpu},
	"DOKE":  {Opcode: 0xF3, ByteSize: TwoBytes, OpcodeType: VCpu},
	"LUP":   {Opcode: 0x7F, ByteSize: TwoBytes, OpcodeType: VCpu},
	"BRA":   {Opcode: 0x90, ByteSize: TwoBytes, OpcodeType: VCpu},
	"CALL":  {Opcode: 0xCF, ByteSize: TwoBytes, OpcodeType: VCpu},
	"RET":   {Opcode: 0xFF, ByteSize: OneByte, OpcodeType: VCpu},
	"PUSH":  {Opcode: 0x75, ByteSize: OneByte, OpcodeType: VCpu},
	"POP":   {Opcode: 0x63, ByteSize: OneByte, OpcodeType: VCpu},
	"ALLOC": {Opcode: 0xDF, ByteSize: TwoBytes, OpcodeType: VCpu},
	"SYS":   {Opcode: 0xB4, ByteSize: TwoBytes, OpcodeType: VCpu},
	"DEF":   {Opcode: 0xCD, ByteSize: TwoBytes, OpcodeType: VCpu},

	// Gigatron vCPU branch instructions: all share opcode 0x35, distinct branch bytes.
	"BEQ": {Opcode: 0x35, Branch: 0x3F, ByteSize: ThreeBytes, OpcodeType: VCpu},
	"BNE": {Opcode: 0x35, Branch: 0x72, ByteSize: ThreeBytes, OpcodeType: VCpu},
	"BLT": {Opcode: 0x35, Branch: 0x50, ByteSize: ThreeBytes, OpcodeType: VCpu},
	"BGT": {Opcode: 0x35, Branch: 0x4D, ByteSize: ThreeBytes, OpcodeType: VCpu},
	"BLE": {Opcode: 0x35, Branch: 0x56, ByteSize: ThreeBytes, OpcodeType: VCpu},
	"BGE": {Opcode: 0x35, Branch: 0x53, ByteSize: ThreeBytes, OpcodeType: VCpu},

	// Reserved assembler pseudo-ops
	"DB":  {ByteSize: TwoBytes, OpcodeType: ReservedDB},
	"DW":  {ByteSize: ThreeBytes, OpcodeType: ReservedDW},
	"DBR": {ByteSize: TwoBytes, OpcodeType: ReservedDBR},
	"DWR": {ByteSize: ThreeBytes, OpcodeType: ReservedDWR},

	// Gigatron native instructions
	".LD":   {Opcode: 0x00, ByteSize: TwoBytes, OpcodeType: Native},
	".NOP":  {Opcode: 0x02, ByteSize: TwoBytes, OpcodeType: Native},
	".ANDA": {Opcode: 0x20, ByteSize: TwoBytes, OpcodeType: Native},
	".ORA":  {Opcode: 0x40, ByteSize: TwoBytes, OpcodeType: Native},
	".XORA": {Opcode: 0x60, ByteSize: TwoBytes, OpcodeType: Native},
	".ADDA": {Opcode: 0x80, ByteSize: TwoBytes, OpcodeType: Native},
	".SUBA": {Opcode: 0xA0, ByteSize: TwoBytes, OpcodeType: Native},
	".ST":   {Opcode: 0xC0, ByteSize: TwoBytes, OpcodeType: Native},
	".JMP":  {Opcode: 0xE0, ByteSize: TwoBytes, OpcodeType: Native},
	".BGT":  {Opcode: 0xE4, ByteSize: TwoBytes, OpcodeType: Native},
	".BLT":  {Opcode: 0xE8, ByteSize: TwoBytes, OpcodeType: Native},
	".BNE":  {Opcode: 0xEC, ByteSize: TwoBytes, OpcodeType: Native},
	".BEQ":  {Opcode: 0xF0, ByteSize: TwoBytes, OpcodeType: Native},
	".BGE":  {Opcode: 0xF4, ByteSize: TwoBytes, OpcodeType: Native},
	".BLE":  {Opcode: 0xF8, ByteSize: TwoBytes, OpcodeType: Native},
	".BRA":  {Opcode: 0xFC, ByteSize: TwoBytes, OpcodeType: Native},
}

// getOpcode looks up a mnemonic (case-insensitive), returning a
// BadSize InstructionType for anything not in the table.
func getOpcode(input string) InstructionType {
	token := strings.ToUpper(input)
	if it, ok := opcodeTable[token]; ok {
		return it
	}
	return InstructionType{ByteSize: BadSize, OpcodeType: VCpu}
}
