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
	"strconv"
	"strings"
)

// GprintfVarType selects the printf-style conversion applied to one
// gprintf variable.
type GprintfVarType int

const (
	GprintfChr GprintfVarType = iota
	GprintfInt
	GprintfBin
	GprintfOct
	GprintfHex
	GprintfStr
)

// GprintfVar is one %-directive's resolved operand.
type GprintfVar struct {
	Indirect     bool
	Type         GprintfVarType
	Width        int
	VarExpr      string
	ResolvedData uint16
}

// Gprintf is a registered debug-print directive, resolved against the
// final symbol table in a post-pass.
type Gprintf struct {
	Address    uint16
	LineNumber int
	LineText   string
	Format     string
	Vars       []GprintfVar
	Subs       []string
	Displayed  bool
}

// createGprintf recognizes a `gprintf("fmt", v1, v2, ...)` line
// (case-insensitive) and, on the mnemonic pass, registers a Gprintf
// record at the current address. Returns ok=true when the line was a
// gprintf line at all (so the caller can skip it), regardless of pass.
func (a *Assembler) createGprintf(pass ParseType, lineText string, lineNumber int) (ok bool, err error) {
	upper := strings.ToUpper(lineText)
	if !strings.Contains(upper, "GPRINTF") {
		return false, nil
	}

	openBracket := strings.IndexByte(lineText, '(')
	closeBracket := -1
	if openBracket >= 0 {
		if j := strings.IndexByte(lineText[openBracket+1:], ')'); j >= 0 {
			closeBracket = openBracket + 1 + j
		}
	}
	brackets := openBracket >= 0 && closeBracket >= 0 && closeBracket-openBracket > 2
	if !brackets {
		return true, fmt.Errorf("bad gprintf format: %q on line %d", lineText, lineNumber)
	}

	quote1 := strings.IndexByte(lineText[openBracket+1:], '"')
	if quote1 >= 0 {
		quote1 += openBracket + 1
	}
	quote2 := -1
	if quote1 >= 0 {
		if j := strings.IndexByte(lineText[quote1+1:], '"'); j >= 0 {
			quote2 = quote1 + 1 + j
		}
	}
	quotes := quote1 >= 0 && quote2 >= 0 && quote2-quote1 > 0
	if !quotes {
		return true, fmt.Errorf("bad gprintf format: %q on line %d", lineText, lineNumber)
	}

	if pass == MnemonicPass {
		formatText := lineText[quote1+1 : quote2]
		variableText := lineText[quote2+1 : closeBracket]

		variables := tokenise(variableText, ',')
		vars, subs, ferr := parseGprintfFormat(formatText, variables)
		if ferr != nil {
			return true, ferr
		}

		a.gprintfs = append(a.gprintfs, Gprintf{
			Address:    a.currentAddress,
			LineNumber: lineNumber,
			LineText:   lineText,
			Format:     formatText,
			Vars:       vars,
			Subs:       subs,
		})
	}

	return true, nil
}

// parseGprintfFormat walks a format string extracting one GprintfVar
// per recognized directive (%c,%d,%b,%o/%q,%x,%s), with an optional
// leading '0' and decimal width (taken modulo 17).
func parseGprintfFormat(format string, variables []string) ([]GprintfVar, []string, error) {
	var vars []GprintfVar
	var subs []string

	var sub strings.Builder
	width := 0
	foundToken := false
	index := 0

	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' && !foundToken {
			continue
		}

		if index+1 > len(variables) {
			return nil, nil, fmt.Errorf("gprintf format %q references more variables than supplied", format)
		}

		foundToken = true
		sub.WriteByte(ch)

		varType := GprintfInt
		switch ch {
		case '0':
			j := i + 1
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
			if n, err := strconv.Atoi(format[i+1 : j]); err == nil {
				width = n % 17
			}
		case 'c':
			varType = GprintfChr
		case 'd':
			varType = GprintfInt
		case 'b':
			varType = GprintfBin
		case 'q', 'o':
			varType = GprintfOct
		case 'x':
			varType = GprintfHex
		case 's':
			varType = GprintfStr
		}

		switch ch {
		case 'c', 'd', 'b', 'q', 'o', 'x', 's':
			foundToken = false
			vars = append(vars, GprintfVar{Type: varType, Width: width, VarExpr: variables[index]})
			index++
			subs = append(subs, sub.String())
			sub.Reset()
			width = 0
		}
	}

	return vars, subs, nil
}

// parseGprintfs resolves every registered gprintf's variable
// expressions against the final symbol table, run once after the code
// pass completes. A leading '*' marks indirection.
func (a *Assembler) parseGprintfs() error {
	for gi := range a.gprintfs {
		g := &a.gprintfs[gi]
		for vi := range g.Vars {
			v := &g.Vars[vi]
			token := strings.Join(strings.Fields(v.VarExpr), "")

			if idx := strings.IndexByte(token, '*'); idx >= 0 {
				v.Indirect = true
				token = token[idx+1:]
			}
			v.VarExpr = token

			data, err := a.resolveOperandToken(token, false, g.LineNumber)
			if err != nil {
				a.gprintfs = append(a.gprintfs[:gi], a.gprintfs[gi+1:]...)
				return fmt.Errorf("error in gprintf(), missing label or equate: %q in %q on line %d", token, g.LineText, g.LineNumber)
			}
			v.ResolvedData = data
		}
	}
	return nil
}

// renderGprintf formats one gprintf record's string at emulation time,
// reading live RAM via readByte.
func renderGprintf(g Gprintf, readByte func(uint16) uint8) string {
	result := g.Format

	for i, v := range g.Vars {
		data := v.ResolvedData
		if v.Indirect {
			lo := uint16(readByte(v.ResolvedData))
			hi := uint16(readByte(v.ResolvedData + 1))
			data = lo | (hi << 8)
		}

		width := v.Width % 17
		var token string
		switch v.Type {
		case GprintfChr:
			token = fmt.Sprintf(widthFormat(width, 'c'), rune(data))
		case GprintfInt:
			token = fmt.Sprintf(widthFormat(width, 'd'), data)
		case GprintfOct:
			token = fmt.Sprintf(widthFormat(width, 'o'), data)
		case GprintfHex:
			token = fmt.Sprintf(widthFormat(width, 'x'), data)
		case GprintfStr:
			length := int(readByte(v.ResolvedData))
			b := make([]byte, length)
			for j := 0; j < length; j++ {
				b[j] = readByte(v.ResolvedData + 1 + uint16(j))
			}
			token = string(b)
		case GprintfBin:
			bits := make([]byte, width)
			for j := width - 1; j >= 0; j-- {
				bits[width-1-j] = '0' + byte((data>>uint(j))&1)
			}
			token = string(bits)
		}

		if idx := strings.Index(result, g.Subs[i]); idx >= 0 {
			result = result[:idx] + token + result[idx+len(g.Subs[i]):]
		}
	}

	return result
}

func widthFormat(width int, verb byte) string {
	if width == 0 {
		return "%" + string(verb)
	}
	return fmt.Sprintf("%%0%d%c", width, verb)
}

// UpdateGprintfPC debounces rendering so a gprintf fires at most once
// per PC visit: call once per emulator step with the vCPU program
// counter, render when it matches an undisplayed record.
func (a *Assembler) UpdateGprintfPC(pc uint16, readByte func(uint16) uint8) []string {
	var rendered []string
	for i := range a.gprintfs {
		g := &a.gprintfs[i]
		if pc == g.Address {
			if !g.Displayed {
				rendered = append(rendered, renderGprintf(*g, readByte))
				g.Displayed = true
			}
		} else {
			g.Displayed = false
		}
	}
	return rendered
}
