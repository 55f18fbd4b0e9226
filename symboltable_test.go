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

import "testing"

func TestSymbolTableAddEquateDuplicate(t *testing.T) {
	st := newSymbolTable()
	if _, err := st.addEquate("value", 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := st.addEquate("value", 43); err == nil {
		t.Fatal("expected duplicate equate error")
	}
}

func TestSymbolTableAddLabelReserved(t *testing.T) {
	st := newSymbolTable()
	if _, _, err := st.addLabel("_startAddress_", 0x200); err == nil {
		t.Fatal("expected reserved word error")
	}
}

func TestSymbolTableAddLabelDuplicate(t *testing.T) {
	st := newSymbolTable()
	if _, _, err := st.addLabel("loop", 0x200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := st.addLabel("loop", 0x210); err == nil {
		t.Fatal("expected duplicate label error")
	}
}

func TestSymbolTableAddLabelCustomAddress(t *testing.T) {
	st := newSymbolTable()
	if _, err := st.addEquate("origin", 0x300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forced, isCustom, err := st.addLabel("origin", 0x200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isCustom {
		t.Fatal("expected isCustomAddress=true when label name matches an equate")
	}
	if forced != 0x300 {
		t.Errorf("forced address = 0x%X, want 0x300", forced)
	}
	if _, ok := st.searchLabel("origin"); ok {
		t.Error("expected no label to be created for a custom-address equate")
	}
}

func TestFindSymbol(t *testing.T) {
	tests := []struct {
		text, name string
		want       int
	}{
		{"value+1", "value", 0},
		{"1+value", "value", 2},
		{"valueX+1", "value", -1},
		{"x+value*2", "value", 2},
		{"value", "value", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := findSymbol(tt.text, tt.name); got != tt.want {
				t.Errorf("findSymbol(%q, %q) = %d, want %d", tt.text, tt.name, got, tt.want)
			}
		})
	}
}

func TestSymbolTableEvaluateExpression(t *testing.T) {
	st := newSymbolTable()
	if _, err := st.addEquate("width", 16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := st.addLabel("loop", 0x210); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := st.evaluateExpression("width*2+1", false, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 33 {
		t.Errorf("evaluateExpression = %d, want 33", got)
	}

	got, err = st.evaluateExpression("loop", false, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x210 {
		t.Errorf("evaluateExpression(loop) = 0x%X, want 0x210", got)
	}

	got, err = st.evaluateExpression("loop", true, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x210>>1 {
		t.Errorf("evaluateExpression(loop, native) = 0x%X, want 0x%X", got, 0x210>>1)
	}

	if _, err := st.evaluateExpression("unknown", false, 1); err == nil {
		t.Fatal("expected unresolved symbol error")
	}
}
