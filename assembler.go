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
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
)

// ParseType is the current pass of the two-pass driver.
type ParseType int

const (
	MnemonicPass ParseType = iota
	CodePass
)

// Standard Gigatron vCPU RAM layout: user code begins at 0x0200. A
// call-table base of 0 means no call table until a _callTable_ equate
// sets one.
const (
	defaultStartAddress uint16 = 0x0200
	defaultCallTable    uint16 = 0x0000
)

const branchAdjustment = 2

// Assembler carries all state for one assembly: symbol tables,
// instruction and byte-code buffers, the address cursors, and the
// collaborator/diagnostics sinks. Construct a fresh instance per
// compile; two assemblies must not share one.
type Assembler struct {
	symbols *SymbolTable

	instructions     []Instruction
	byteCode         []ByteCode
	callTableEntries []CallTableEntry
	gprintfs         []Gprintf

	callTable      uint16
	startAddress   uint16
	currentAddress uint16
	includePath    string
	sourceFile     string

	pageCheckCustomAddress uint16

	collaborator Collaborator
	diagnostics  io.Writer

	iterByteIndex  int
	iterAddress    uint16
	iterCustomAddr uint16
}

// NewAssembler constructs a ready-to-use Assembler. A nil collaborator
// defaults to a no-op implementation; a nil diagnostics sink defaults
// to os.Stderr.
func NewAssembler(collaborator Collaborator, diagnostics io.Writer) *Assembler {
	if collaborator == nil {
		collaborator = nullCollaborator{}
	}
	if diagnostics == nil {
		diagnostics = os.Stderr
	}
	a := &Assembler{collaborator: collaborator, diagnostics: diagnostics}
	a.clear()
	return a
}

// SetIncludePath sets the prefix prepended to every %include target.
func (a *Assembler) SetIncludePath(path string) { a.includePath = path }

// StartAddress returns the configured start address.
func (a *Assembler) StartAddress() uint16 { return a.startAddress }

// clear resets all tables to an empty state.
func (a *Assembler) clear() {
	a.symbols = newSymbolTable()
	a.instructions = nil
	a.byteCode = nil
	a.callTableEntries = nil
	a.gprintfs = nil
	a.iterByteIndex = 0
	a.iterAddress = 0
	a.iterCustomAddr = 0
}

// resolveOperandToken resolves a single token via the ordered
// pipeline: direct numeric literal -> equate lookup -> label lookup ->
// full expression evaluation. isNative shifts a label address right by
// 1 (RAM address -> ROM word index).
func (a *Assembler) resolveOperandToken(token string, isNative bool, lineNumber int) (uint16, error) {
	if v, ok := stringToU16(token); ok {
		return v, nil
	}
	if eq, ok := a.symbols.searchEquate(token); ok {
		return eq.Value, nil
	}
	if l, ok := a.symbols.searchLabel(token); ok {
		if isNative {
			return l.Address >> 1, nil
		}
		return l.Address, nil
	}
	if classifyExpression(token) == ExpressionValid {
		return a.symbols.evaluateExpression(token, isNative, lineNumber)
	}
	return 0, fmt.Errorf("line %d: unresolved symbol %q", lineNumber, token)
}

// charLiteral extracts the first character of a single-quoted or
// double-quoted token, e.g. 'A' -> 'A'.
func charLiteral(token string) (byte, bool) {
	q1 := strings.IndexAny(token, "'\"")
	if q1 < 0 {
		return 0, false
	}
	q2 := strings.IndexAny(token[q1+1:], "'\"")
	if q2 < 0 {
		return 0, false
	}
	q2 += q1 + 1
	if q2-q1 <= 1 {
		return 0, false
	}
	return token[q1+1], true
}

// handleDefineByte walks the operand tokens of a DB/DBR instruction:
// a quoted token expands to one byte per character; any
// other token resolves to a single byte. When createInstruction is
// false (mnemonic pass), only the total size is computed, tolerating
// forward references since only token shape (quoted or not) matters
// for sizing.
func (a *Assembler) handleDefineByte(tokens []string, tokenIndex int, isRomAddress bool, opcodeType OpcodeType, createInstruction bool, lineNumber int) (size int, instrs []Instruction, err error) {
	for i := tokenIndex; i < len(tokens); i++ {
		tok := tokens[i]
		if isCommentToken(tok) {
			break
		}

		q1 := strings.IndexAny(tok, "'\"")
		q2 := -1
		if q1 >= 0 {
			if j := strings.IndexAny(tok[q1+1:], "'\""); j >= 0 {
				q2 = q1 + 1 + j
			}
		}
		if q1 >= 0 && q2 >= 0 {
			content := tok[q1+1 : q2]
			for j := 0; j < len(content); j++ {
				if createInstruction {
					instrs = append(instrs, Instruction{IsRomAddress: isRomAddress, Size: OneByte, Opcode: content[j], OpcodeType: opcodeType})
				}
				size++
			}
			continue
		}

		var b byte
		if createInstruction {
			v, rerr := a.resolveOperandToken(tok, false, lineNumber)
			if rerr != nil {
				return size, instrs, rerr
			}
			b = uint8(v)
			instrs = append(instrs, Instruction{IsRomAddress: isRomAddress, Size: OneByte, Opcode: b, OpcodeType: opcodeType})
		}
		size++
	}
	return size, instrs, nil
}

// handleDefineWord is handleDefineByte's 2-byte-per-token counterpart
// for DW/DWR.
func (a *Assembler) handleDefineWord(tokens []string, tokenIndex int, isRomAddress bool, opcodeType OpcodeType, createInstruction bool, lineNumber int) (size int, instrs []Instruction, err error) {
	for i := tokenIndex; i < len(tokens); i++ {
		tok := tokens[i]
		if isCommentToken(tok) {
			break
		}

		var v uint16
		if createInstruction {
			rv, rerr := a.resolveOperandToken(tok, false, lineNumber)
			if rerr != nil {
				return size, instrs, rerr
			}
			v = rv
			instrs = append(instrs, Instruction{
				IsRomAddress: isRomAddress,
				Size:         TwoBytes,
				Opcode:       uint8(v & 0x00FF),
				Operand0:     uint8(v >> 8),
				OpcodeType:   opcodeType,
			})
		}
		size += 2
	}
	return size, instrs, nil
}

// Assemble runs the full pipeline over filename: ingest lines,
// preprocess (%include/%MACRO), then MnemonicPass followed by CodePass,
// finally packing the byte-code buffer and resolving gprintf
// expressions.
func (a *Assembler) Assemble(filename string, startAddress uint16) error {
	a.clear()
	a.sourceFile = filename
	a.callTable = defaultCallTable
	a.startAddress = startAddress
	a.currentAddress = startAddress
	a.collaborator.DisableUploads(false)

	lines, err := readLines(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %q: %w", filename, err)
	}

	lines, err = a.preProcess(lines, true)
	if err != nil {
		return err
	}

	for pass := MnemonicPass; pass <= CodePass; pass++ {
		a.currentAddress = a.startAddress
		if err := a.assemblePass(pass, lines); err != nil {
			return err
		}
	}

	a.packByteCodeBuffer()

	if err := a.parseGprintfs(); err != nil {
		return err
	}

	return nil
}

func (a *Assembler) assemblePass(pass ParseType, lines []LineToken) error {
	for lineNumber, lt := range lines {
		if isBlankLine(lt.Text) {
			continue
		}

		tokens := tokeniseLine(lt.Text)
		if len(tokens) == 0 {
			continue
		}
		if isCommentToken(tokens[0]) {
			continue
		}

		if handled, err := a.createGprintf(pass, lt.Text, lineNumber+1); handled {
			if err != nil {
				return err
			}
			continue
		}

		tokenIndex := 0
		atColumnZero := lt.Text[0] != ' ' && lt.Text[0] != '\t'

		if atColumnZero {
			if len(tokens) >= 2 && strings.EqualFold(tokens[1], "EQU") {
				if pass == MnemonicPass {
					if err := a.evaluateEquateLine(tokens, lineNumber+1); err != nil {
						return err
					}
				}
				continue
			}

			if pass == MnemonicPass {
				forced, isCustom, err := a.symbols.addLabel(tokens[0], a.currentAddress)
				if err != nil {
					return fmt.Errorf("%w: in %q on line %d", err, lt.Text, lineNumber+1)
				}
				if isCustom {
					a.currentAddress = forced
				}
			} else if eq, ok := a.symbols.searchEquate(tokens[0]); ok && eq.IsCustomAddress {
				a.currentAddress = eq.Value
			}
			tokenIndex = 1
		}

		if tokenIndex >= len(tokens) {
			continue
		}

		it := getOpcode(tokens[tokenIndex])
		opcode := it.Opcode
		branch := it.Branch
		outputSize := it.ByteSize
		opcodeType := it.OpcodeType
		instAddress := a.currentAddress

		if outputSize == BadSize {
			return fmt.Errorf("bad opcode: %q in %q on line %d", tokens[tokenIndex], lt.Text, lineNumber+1)
		}
		tokenIndex++

		instruction := Instruction{Size: outputSize, Opcode: opcode, Address: instAddress, OpcodeType: opcodeType}

		compoundInstruction := opcodeType == ReservedDB || opcodeType == ReservedDBR || opcodeType == ReservedDW || opcodeType == ReservedDWR

		if pass == MnemonicPass && compoundInstruction {
			var size int
			var err error
			switch opcodeType {
			case ReservedDB, ReservedDBR:
				size, _, err = a.handleDefineByte(tokens, tokenIndex, opcodeType == ReservedDBR, opcodeType, false, lineNumber+1)
			case ReservedDW, ReservedDWR:
				size, _, err = a.handleDefineWord(tokens, tokenIndex, opcodeType == ReservedDWR, opcodeType, false, lineNumber+1)
			}
			if err != nil {
				return fmt.Errorf("bad define data: %q in %q on line %d: %w", lt.Text, lt.Text, lineNumber+1, err)
			}
			outputSize = ByteSize(size)
		}

		if pass == CodePass {
			if err := a.assembleCodePassInstruction(&instruction, tokens, tokenIndex, opcode, branch, opcodeType, &outputSize, compoundInstruction, lt, lineNumber); err != nil {
				return err
			}
		}

		a.currentAddress += uint16(outputSize)
	}

	return nil
}

func (a *Assembler) evaluateEquateLine(tokens []string, lineNumber int) error {
	name := tokens[0]
	valueText := strings.Join(tokens[2:], "")
	if idx := strings.IndexAny(valueText, ";#"); idx >= 0 {
		valueText = valueText[:idx]
	}

	var value uint16
	if v, ok := stringToU16(strings.TrimSpace(valueText)); ok {
		value = v
	} else if eq, ok := a.symbols.searchEquate(strings.TrimSpace(valueText)); ok {
		value = eq.Value
	} else {
		v, err := a.symbols.evaluateExpression(valueText, false, lineNumber)
		if err != nil {
			return fmt.Errorf("missing equate: %q on line %d", name, lineNumber)
		}
		value = v
	}

	switch strings.ToUpper(name) {
	case "_CALLTABLE_":
		a.callTable = value
	case "_STARTADDRESS_":
		a.startAddress = value
		a.currentAddress = value
	case "_DISABLEUPLOAD_":
		a.collaborator.DisableUploads(value != 0)
	case "_SINGLESTEPWATCH_":
		a.collaborator.SetSingleStepWatchAddress(value)
	case "_CPUUSAGEADDRESSA_":
		a.collaborator.SetCpuUsageAddressA(value)
	case "_CPUUSAGEADDRESSB_":
		a.collaborator.SetCpuUsageAddressB(value)
	default:
		if _, err := a.symbols.addEquate(name, value); err != nil {
			return fmt.Errorf("%w on line %d", err, lineNumber)
		}
	}

	return nil
}

// assembleCodePassInstruction resolves operands and appends to
// a.instructions, implementing the branch-adjustment, call-table
// allocation, native-instruction, and DB/DW emission rules.
func (a *Assembler) assembleCodePassInstruction(instruction *Instruction, tokens []string, tokenIndex int, opcode, branch uint8, opcodeType OpcodeType, outputSize *ByteSize, compoundInstruction bool, lt LineToken, lineNumber int) error {
	if opcodeType == Native && opcode == 0x02 {
		// NOP: no operand.
	} else if (*outputSize == TwoBytes || *outputSize == ThreeBytes) && tokenIndex >= len(tokens) {
		return fmt.Errorf("missing operand/s: %q in %q on line %d", lt.Text, lt.Text, lineNumber+1)
	}

	// First instruction inherits the start address.
	if len(a.instructions) == 0 {
		instruction.Address = a.startAddress
		instruction.IsCustomAddress = true
		a.currentAddress = a.startAddress
	}

	if eq, ok := a.symbols.searchEquate(tokens[0]); ok && eq.IsCustomAddress {
		instruction.Address = eq.Value
		instruction.IsCustomAddress = true
		a.currentAddress = eq.Value
	}

	switch *outputSize {
	case OneByte:
		a.instructions = append(a.instructions, *instruction)
		return a.checkInvalidAddress(CodePass, a.currentAddress, *outputSize, *instruction, lt.Text, lineNumber)

	case TwoBytes:
		return a.assembleTwoByteInstruction(instruction, tokens, tokenIndex, opcode, opcodeType, outputSize, compoundInstruction, lt, lineNumber)

	case ThreeBytes:
		return a.assembleThreeByteInstruction(instruction, tokens, tokenIndex, branch, opcodeType, outputSize, compoundInstruction, lt, lineNumber)
	}

	return nil
}

func (a *Assembler) assembleTwoByteInstruction(instruction *Instruction, tokens []string, tokenIndex int, opcode uint8, opcodeType OpcodeType, outputSize *ByteSize, compoundInstruction bool, lt LineToken, lineNumber int) error {
	var operand uint8
	operandValid := false

	switch {
	case opcodeType == VCpu && opcode == 0x90: // BRA
		address, ok := a.evaluateLabelOperand(tokens, tokenIndex, lineNumber+1)
		if !ok {
			return fmt.Errorf("label missing: %q in %q on line %d", tokens[tokenIndex], lt.Text, lineNumber+1)
		}
		operandValid = true
		operand = uint8(address) - branchAdjustment

	case opcodeType == VCpu && opcode == 0xCF && a.callTable != 0: // CALL
		address, ok := a.evaluateLabelOperand(tokens, tokenIndex, lineNumber+1)
		if !ok {
			return fmt.Errorf("label missing: %q in %q on line %d", tokens[tokenIndex], lt.Text, lineNumber+1)
		}
		operand, operandValid = a.allocateCallTableEntry(address)

	case opcodeType == VCpu && opcode == 0xCF && a.callTable == 0: // CALL, no table
		if _, ok := a.symbols.searchLabel(tokens[tokenIndex]); ok {
			fmt.Fprintf(a.diagnostics, "Warning, _callTable_ is 0, CALL %q uses the label's low byte directly: on line %d\n", tokens[tokenIndex], lineNumber+1)
		}
	}

	if opcodeType != Native && !operandValid {
		tok := tokens[tokenIndex]
		if v, ok := stringToU8(tok); ok {
			operand, operandValid = v, true
		} else if ch, ok := charLiteral(tok); ok {
			operand, operandValid = ch, true
		} else if eq, ok := a.symbols.searchEquate(tok); ok {
			operand, operandValid = uint8(eq.Value), true
		} else if l, ok := a.symbols.searchLabel(tok); ok {
			operand, operandValid = uint8(l.Address), true
		} else if classifyExpression(tok) == ExpressionValid {
			input := concatOperandTokens(tokens, tokenIndex, true)
			v, err := a.symbols.evaluateExpression(input, false, lineNumber+1)
			if err != nil {
				return err
			}
			operand, operandValid = uint8(v), true
		} else {
			return fmt.Errorf("label/equate error: %q in %q on line %d", tok, lt.Text, lineNumber+1)
		}
	}

	if opcodeType == Native {
		var ok bool
		var newOpcode uint8
		if !operandValid {
			input := concatOperandTokens(tokens, tokenIndex, true)
			newOpcode, operand, ok = a.handleNativeInstruction(input, opcode, lineNumber+1)
			if !ok {
				return fmt.Errorf("native instruction is malformed: %q in %q on line %d", lt.Text, lt.Text, lineNumber+1)
			}
			opcode = newOpcode
		}

		instruction.IsRomAddress = true
		instruction.Opcode = opcode
		instruction.Operand0 = operand
		a.instructions = append(a.instructions, *instruction)
		if err := a.checkInvalidAddress(CodePass, a.currentAddress, *outputSize, *instruction, lt.Text, lineNumber); err != nil {
			return err
		}
		a.checkROMMismatch(*instruction, lineNumber)
		return nil
	}

	if opcodeType == ReservedDB || opcodeType == ReservedDBR {
		instruction.IsRomAddress = opcodeType == ReservedDBR
		instruction.Size = OneByte

		size, all, err := a.handleDefineByte(tokens, tokenIndex, instruction.IsRomAddress, opcodeType, true, lineNumber+1)
		if err != nil || len(all) == 0 {
			return fmt.Errorf("bad DB data: %q in %q on line %d: %w", lt.Text, lt.Text, lineNumber+1, err)
		}

		instruction.Opcode = all[0].Opcode
		a.instructions = append(a.instructions, *instruction)
		a.instructions = append(a.instructions, all[1:]...)
		*outputSize = ByteSize(size)

		return a.checkInvalidAddress(CodePass, a.currentAddress, *outputSize, *instruction, lt.Text, lineNumber)
	}

	instruction.Operand0 = operand
	a.instructions = append(a.instructions, *instruction)
	return a.checkInvalidAddress(CodePass, a.currentAddress, *outputSize, *instruction, lt.Text, lineNumber)
}

func (a *Assembler) assembleThreeByteInstruction(instruction *Instruction, tokens []string, tokenIndex int, branch uint8, opcodeType OpcodeType, outputSize *ByteSize, compoundInstruction bool, lt LineToken, lineNumber int) error {
	if branch != 0 {
		address, ok := a.evaluateLabelOperand(tokens, tokenIndex, lineNumber+1)
		if !ok {
			return fmt.Errorf("label missing: %q in %q on line %d", tokens[tokenIndex], lt.Text, lineNumber+1)
		}
		operand := uint8(address) - branchAdjustment

		instruction.Operand0 = branch
		instruction.Operand1 = operand
		a.instructions = append(a.instructions, *instruction)
		return a.checkInvalidAddress(CodePass, a.currentAddress, *outputSize, *instruction, lt.Text, lineNumber)
	}

	var operand uint16
	tok := tokens[tokenIndex]
	if v, ok := stringToU16(tok); ok {
		operand = v
	} else if eq, ok := a.symbols.searchEquate(tok); ok {
		operand = eq.Value
	} else if l, ok := a.symbols.searchLabel(tok); ok {
		operand = l.Address
	} else if classifyExpression(tok) == ExpressionValid {
		input := concatOperandTokens(tokens, tokenIndex, true)
		v, err := a.symbols.evaluateExpression(input, false, lineNumber+1)
		if err != nil {
			return err
		}
		operand = v
	} else {
		return fmt.Errorf("label/equate error: %q in %q on line %d", tok, lt.Text, lineNumber+1)
	}

	if opcodeType == ReservedDW || opcodeType == ReservedDWR {
		instruction.IsRomAddress = opcodeType == ReservedDWR
		instruction.Size = TwoBytes

		size, all, err := a.handleDefineWord(tokens, tokenIndex, instruction.IsRomAddress, opcodeType, true, lineNumber+1)
		if err != nil || len(all) == 0 {
			return fmt.Errorf("bad DW data: %q in %q on line %d: %w", lt.Text, lt.Text, lineNumber+1, err)
		}

		instruction.Opcode = all[0].Opcode
		instruction.Operand0 = all[0].Operand0
		a.instructions = append(a.instructions, *instruction)
		a.instructions = append(a.instructions, all[1:]...)
		*outputSize = ByteSize(size)

		return a.checkInvalidAddress(CodePass, a.currentAddress, *outputSize, *instruction, lt.Text, lineNumber)
	}

	instruction.Operand0 = uint8(operand & 0x00FF)
	instruction.Operand1 = uint8(operand >> 8)
	a.instructions = append(a.instructions, *instruction)
	return a.checkInvalidAddress(CodePass, a.currentAddress, instruction.Size, *instruction, lt.Text, lineNumber)
}

// evaluateLabelOperand resolves a branch/CALL target: a plain label
// name by lookup, an arithmetic expression via the full substitution
// pipeline. An Invalid classification or an unknown plain name fails.
func (a *Assembler) evaluateLabelOperand(tokens []string, tokenIndex int, lineNumber int) (uint16, bool) {
	if tokenIndex >= len(tokens) {
		return 0, false
	}
	token := concatOperandTokens(tokens, tokenIndex, false)

	switch classifyExpression(token) {
	case ExpressionInvalid:
		return 0, false
	case ExpressionValid:
		v, err := a.symbols.evaluateExpression(token, false, lineNumber)
		if err != nil {
			return 0, false
		}
		return v, true
	}

	l, ok := a.symbols.searchLabel(token)
	if !ok {
		return 0, false
	}
	return l.Address, true
}

// allocateCallTableEntry deduplicates a vCPU CALL target into the
// shared indirection table: reuse an existing entry's operand byte, or
// allocate a new descending-2-byte slot.
func (a *Assembler) allocateCallTableEntry(targetAddress uint16) (uint8, bool) {
	for _, e := range a.callTableEntries {
		if e.TargetAddress == targetAddress {
			return e.Operand, true
		}
	}
	operand := uint8(a.callTable & 0x00FF)
	a.callTableEntries = append(a.callTableEntries, CallTableEntry{Operand: operand, TargetAddress: targetAddress})
	a.callTable -= 2
	return operand, true
}

// checkROMMismatch compares a native instruction against an attached
// ROM image via the Collaborator, warning (never failing) on
// disagreement.
func (a *Assembler) checkROMMismatch(instruction Instruction, lineNumber int) {
	wordAddr := instruction.Address >> 1
	opc, ok := a.collaborator.ROM(wordAddr, 0)
	if !ok {
		return
	}
	ope, _ := a.collaborator.ROM(wordAddr, 1)
	if instruction.Opcode != opc || instruction.Operand0 != ope {
		fmt.Fprintf(a.diagnostics, "Warning, ROM native instruction mismatch: 0x%04X : ASM=0x%02X%02X : ROM=0x%02X%02X : on line %d\n",
			wordAddr, instruction.Opcode, instruction.Operand0, opc, ope, lineNumber+1)
	}
}

// concatOperandTokens concatenates tokens from fromIndex, stopping at
// a comment token, optionally stripping whitespace.
func concatOperandTokens(tokens []string, fromIndex int, stripWhitespace bool) string {
	var b strings.Builder
	for j := fromIndex; j < len(tokens); j++ {
		if isCommentToken(tokens[j]) {
			break
		}
		b.WriteString(tokens[j])
	}
	s := b.String()
	if stripWhitespace {
		s = strings.Join(strings.Fields(s), "")
	}
	return s
}

// NextAssembledByte is the pull iterator over the emitted byte stream:
// returns the next ByteCode and a done flag. On the first call the
// address resets to the start address; a ByteCode with IsCustomAddress
// starts a new segment.
func (a *Assembler) NextAssembledByte() (ByteCode, bool) {
	if a.iterByteIndex >= len(a.byteCode) {
		a.iterByteIndex = 0
		return ByteCode{}, true
	}

	if a.iterByteIndex == 0 {
		a.iterAddress = a.startAddress
	}
	bc := a.byteCode[a.iterByteIndex]
	a.iterByteIndex++

	if bc.IsCustomAddress {
		a.iterAddress = bc.Address
		a.iterCustomAddr = bc.Address
	}
	a.iterAddress++

	return bc, false
}

// AllBytes drains NextAssembledByte into a slice, for callers that want
// the whole stream rather than pull-iteration.
func (a *Assembler) AllBytes() []ByteCode {
	return lo.Filter(a.byteCode, func(ByteCode, int) bool { return true })
}
