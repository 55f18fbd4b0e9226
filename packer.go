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

import "fmt"

// Audio-channel register ranges: the Gigatron ROM v1/v2 zero-page
// layout, 4 channels x 4 registers each starting at 0x18. Not verified
// against a ROM image.
const (
	giga_CH0_WAV_A = 0x18
	giga_CH0_OSC_H = 0x1B
	giga_CH1_WAV_A = 0x1C
	giga_CH1_OSC_H = 0x1F
	giga_CH2_WAV_A = 0x20
	giga_CH2_OSC_H = 0x23
	giga_CH3_WAV_A = 0x24
	giga_CH3_OSC_H = 0x27
)

// packByteCode appends one instruction's bytes to out. Only the first
// byte carries the instruction's address and segment marker.
func packByteCode(instruction Instruction, out *[]ByteCode) {
	switch instruction.Size {
	case OneByte:
		*out = append(*out, ByteCode{
			IsRomAddress:    instruction.IsRomAddress,
			IsCustomAddress: instruction.IsCustomAddress,
			Data:            instruction.Opcode,
			Address:         instruction.Address,
		})

	case TwoBytes:
		*out = append(*out,
			ByteCode{IsRomAddress: instruction.IsRomAddress, IsCustomAddress: instruction.IsCustomAddress, Data: instruction.Opcode, Address: instruction.Address},
			ByteCode{IsRomAddress: instruction.IsRomAddress, Data: instruction.Operand0},
		)

	case ThreeBytes:
		*out = append(*out,
			ByteCode{IsRomAddress: instruction.IsRomAddress, IsCustomAddress: instruction.IsCustomAddress, Data: instruction.Opcode, Address: instruction.Address},
			ByteCode{IsRomAddress: instruction.IsRomAddress, Data: instruction.Operand0},
			ByteCode{IsRomAddress: instruction.IsRomAddress, Data: instruction.Operand1},
		)
	}
}

// packByteCodeBuffer segments RAM output into 256-byte pages,
// force-synthesizing a custom-address boundary at each page start that
// lacks an explicit one, then emits ByteCode records for every
// instruction, followed by the call table in reverse index order.
func (a *Assembler) packByteCodeBuffer() {
	segmentOffset := uint16(0)
	segmentAddress := uint16(0)

	for i := range a.instructions {
		inst := &a.instructions[i]
		if !inst.IsRomAddress {
			if inst.IsCustomAddress {
				segmentOffset = 0
				segmentAddress = inst.Address
			}

			if !inst.IsCustomAddress && segmentOffset%256 == 0 {
				inst.IsCustomAddress = true
				inst.Address = segmentAddress + segmentOffset
			}

			segmentOffset += uint16(inst.Size)
		}

		packByteCode(*inst, &a.byteCode)
	}

	if a.callTable != 0 && len(a.callTableEntries) > 0 {
		end := len(a.callTableEntries) - 1
		for i := end; i >= 0; i-- {
			entry := a.callTableEntries[i]
			a.byteCode = append(a.byteCode,
				ByteCode{
					IsCustomAddress: i == end,
					Data:            uint8(entry.TargetAddress & 0x00FF),
					Address:         a.callTable + uint16(end-i)*2 + 2,
				},
				ByteCode{
					Data:    uint8(entry.TargetAddress >> 8),
					Address: a.callTable + uint16(end-i)*2 + 3,
				},
			)
		}
	}
}

// checkInvalidAddress runs the audio-region overlap warning (warn only)
// and the page-boundary crossing check (hard fail) for one instruction.
func (a *Assembler) checkInvalidAddress(pass ParseType, currentAddress uint16, instructionSize ByteSize, instruction Instruction, lineText string, lineNumber int) error {
	if pass == CodePass && !instruction.IsRomAddress {
		start := currentAddress
		end := currentAddress + uint16(instructionSize) - 1
		if inAudioRange(start, end, giga_CH0_WAV_A, giga_CH0_OSC_H) ||
			inAudioRange(start, end, giga_CH1_WAV_A, giga_CH1_OSC_H) ||
			inAudioRange(start, end, giga_CH2_WAV_A, giga_CH2_OSC_H) ||
			inAudioRange(start, end, giga_CH3_WAV_A, giga_CH3_OSC_H) {
			fmt.Fprintf(a.diagnostics, "Warning, audio channel boundary compromised: 0x%04X <-> 0x%04X\n'%s'\non line %d\n", start, end, lineText, lineNumber+1)
		}
	}

	if pass == CodePass && (instruction.OpcodeType == VCpu || instruction.OpcodeType == Native) {
		if instruction.IsCustomAddress {
			a.pageCheckCustomAddress = instruction.Address
		}

		oldAddress := currentAddress
		if instruction.IsRomAddress {
			oldAddress = a.pageCheckCustomAddress + ((currentAddress & 0x00FF) >> 1)
		}
		newCurrent := currentAddress + uint16(instructionSize) - 1
		newAddress := newCurrent
		if instruction.IsRomAddress {
			newAddress = a.pageCheckCustomAddress + ((newCurrent & 0x00FF) >> 1)
		}

		if (oldAddress >> 8) != (newAddress >> 8) {
			return fmt.Errorf("page boundary compromised: %04X : %04X : %q on line %d", oldAddress, newAddress, lineText, lineNumber+1)
		}
	}

	return nil
}

func inAudioRange(start, end uint16, lo, hi uint16) bool {
	return (start >= lo && start <= hi) || (end >= lo && end <= hi)
}
