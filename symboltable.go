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
	"strings"

	"github.com/samber/lo"
)

// Equate is a name bound to a u16 value in the mnemonic pass. Equates are
// immutable once stored except for IsCustomAddress, which a later label
// occurrence with the same name can flip on.
type Equate struct {
	Name            string
	Value           uint16
	IsCustomAddress bool
}

// Label is a name bound to the current-address cursor at its declaration
// point.
type Label struct {
	Name    string
	Address uint16
}

// reservedWords may not be used as equate or label names; they are the
// names with side effects plus the preprocessor/gprintf keywords.
var reservedWords = []string{
	"_CALLTABLE_",
	"_STARTADDRESS_",
	"_SINGLESTEPWATCH_",
	"_DISABLEUPLOAD_",
	"_CPUUSAGEADDRESSA_",
	"_CPUUSAGEADDRESSB_",
	"%INCLUDE",
	"%MACRO",
	"%ENDM",
	"GPRINTF",
}

func isReservedWord(name string) bool {
	return lo.Contains(reservedWords, strings.ToUpper(name))
}

// separatorChars bound a symbol name occurrence for boundary-aware
// substring substitution.
const separatorChars = "+-*/().,!?;#'\"[] \t\n\r"

// SymbolTable holds the equate and label sets for one assembly, plus the
// name->index maps that keep lookups O(1) instead of O(n) scans over the
// slices.
type SymbolTable struct {
	equates   []Equate
	equateIdx map[string]int
	labels    []Label
	labelIdx  map[string]int
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		equateIdx: make(map[string]int),
		labelIdx:  make(map[string]int),
	}
}

func (t *SymbolTable) searchEquate(name string) (*Equate, bool) {
	i, ok := t.equateIdx[strings.ToUpper(name)]
	if !ok {
		return nil, false
	}
	return &t.equates[i], true
}

func (t *SymbolTable) searchLabel(name string) (*Label, bool) {
	i, ok := t.labelIdx[strings.ToUpper(name)]
	if !ok {
		return nil, false
	}
	return &t.labels[i], true
}

// addEquate stores a new equate, failing on a name collision with an
// existing equate.
func (t *SymbolTable) addEquate(name string, value uint16) (*Equate, error) {
	key := strings.ToUpper(name)
	if _, exists := t.equateIdx[key]; exists {
		return nil, fmt.Errorf("duplicate equate %q", name)
	}
	t.equates = append(t.equates, Equate{Name: name, Value: value})
	t.equateIdx[key] = len(t.equates) - 1
	return &t.equates[len(t.equates)-1], nil
}

// addLabel stores a new label at the given address, failing on a
// reserved-word name or a name collision with an existing label. If the
// name matches an existing equate, that equate is marked IsCustomAddress
// instead of creating a label (the custom-address directive); the
// caller inspects the returned forcedAddress/isCustomAddress to reset
// the current-address cursor.
func (t *SymbolTable) addLabel(name string, address uint16) (forcedAddress uint16, isCustomAddress bool, err error) {
	if isReservedWord(name) {
		return 0, false, fmt.Errorf("reserved word %q used as label", name)
	}
	if eq, ok := t.searchEquate(name); ok {
		eq.IsCustomAddress = true
		return eq.Value, true, nil
	}
	key := strings.ToUpper(name)
	if _, exists := t.labelIdx[key]; exists {
		return 0, false, fmt.Errorf("duplicate label %q", name)
	}
	t.labels = append(t.labels, Label{Name: name, Address: address})
	t.labelIdx[key] = len(t.labels) - 1
	return 0, false, nil
}

// findSymbol scans text for a boundary-aware occurrence of name,
// returning its start index or -1: a match must be preceded and
// followed by a separator character or a string edge.
func findSymbol(text, name string) int {
	if name == "" {
		return -1
	}
	start := 0
	for {
		idx := strings.Index(text[start:], name)
		if idx < 0 {
			return -1
		}
		pos := start + idx
		end := pos + len(name)
		beforeOK := pos == 0 || strings.IndexByte(separatorChars, text[pos-1]) >= 0
		afterOK := end == len(text) || strings.IndexByte(separatorChars, text[end]) >= 0
		if beforeOK && afterOK {
			return pos
		}
		start = pos + 1
		if start >= len(text) {
			return -1
		}
	}
}

// applyEquatesToExpression replaces every occurrence of every known
// equate name in text with its decimal value, in table declaration
// order, with no overlap protection: an equate whose name prefixes
// another's substitutes first if declared first.
func (t *SymbolTable) applyEquatesToExpression(text string) string {
	for i := range t.equates {
		eq := &t.equates[i]
		for {
			pos := findSymbol(text, eq.Name)
			if pos < 0 {
				break
			}
			replacement := fmt.Sprintf("%d", eq.Value)
			text = text[:pos] + replacement + text[pos+len(eq.Name):]
		}
	}
	return text
}

// applyLabelsToExpression replaces every occurrence of every known label
// name in text with its address, shifted right by 1 for native-family
// instructions (RAM address -> ROM word index), same position-ordered
// unprotected substitution policy as applyEquatesToExpression.
func (t *SymbolTable) applyLabelsToExpression(text string, isNative bool) string {
	for i := range t.labels {
		l := &t.labels[i]
		for {
			pos := findSymbol(text, l.Name)
			if pos < 0 {
				break
			}
			addr := l.Address
			if isNative {
				addr >>= 1
			}
			replacement := fmt.Sprintf("%d", addr)
			text = text[:pos] + replacement + text[pos+len(l.Name):]
		}
	}
	return text
}

// evaluateExpression substitutes equates and labels into text, strips
// whitespace, and delegates to the arithmetic parser. Resolution is
// ordered: direct numeric literal, then equate lookup, then label
// lookup, then full expression evaluation.
func (t *SymbolTable) evaluateExpression(text string, isNative bool, lineNumber int) (uint16, error) {
	trimmed := strings.TrimSpace(text)

	if v, ok := stringToU16(trimmed); ok {
		return v, nil
	}
	if eq, ok := t.searchEquate(trimmed); ok {
		return eq.Value, nil
	}
	if l, ok := t.searchLabel(trimmed); ok {
		if isNative {
			return l.Address >> 1, nil
		}
		return l.Address, nil
	}

	switch classifyExpression(trimmed) {
	case ExpressionInvalid:
		return 0, fmt.Errorf("line %d: invalid expression %q", lineNumber, text)
	case ExpressionNotExpression:
		return 0, fmt.Errorf("line %d: unresolved symbol %q", lineNumber, trimmed)
	}

	substituted := t.applyEquatesToExpression(text)
	substituted = t.applyLabelsToExpression(substituted, isNative)
	substituted = strings.Join(strings.Fields(substituted), "")

	return parseExpr(substituted, lineNumber)
}
