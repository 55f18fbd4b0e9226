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

func TestParseGprintfFormat(t *testing.T) {
	vars, subs, err := parseGprintfFormat("count=%d addr=%04x", []string{"count", "addr"})
	if err != nil {
		t.Fatalf("parseGprintfFormat: %v", err)
	}
	if len(vars) != 2 || len(subs) != 2 {
		t.Fatalf("vars/subs = %d/%d, want 2/2", len(vars), len(subs))
	}
	if vars[0].Type != GprintfInt || vars[0].Width != 0 {
		t.Errorf("vars[0] = %+v, want %%d width 0", vars[0])
	}
	if vars[1].Type != GprintfHex || vars[1].Width != 4 {
		t.Errorf("vars[1] = %+v, want %%x width 4", vars[1])
	}
}

func TestParseGprintfFormatWidthModulo(t *testing.T) {
	vars, _, err := parseGprintfFormat("%020d", []string{"v"})
	if err != nil {
		t.Fatalf("parseGprintfFormat: %v", err)
	}
	if vars[0].Width != 20%17 {
		t.Errorf("width = %d, want %d (modulo 17)", vars[0].Width, 20%17)
	}
}

func TestParseGprintfFormatTooFewVariables(t *testing.T) {
	if _, _, err := parseGprintfFormat("%d %d", []string{"only"}); err == nil {
		t.Fatal("expected error for more directives than variables")
	}
}

func TestGprintfRegistersAtCurrentAddress(t *testing.T) {
	src := "count EQU 0x30\n      LDI 1\n      gprintf(\"count = %d\", count)\n      RET\n"
	a, err := assembleSource(t, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(a.gprintfs) != 1 {
		t.Fatalf("len(gprintfs) = %d, want 1", len(a.gprintfs))
	}
	g := a.gprintfs[0]
	if g.Address != defaultStartAddress+2 {
		t.Errorf("address = 0x%04X, want 0x%04X (after LDI)", g.Address, defaultStartAddress+2)
	}
	if len(g.Vars) != 1 || g.Vars[0].ResolvedData != 0x30 {
		t.Errorf("vars = %+v, want count resolved to 0x30", g.Vars)
	}
	// The gprintf line itself must emit no bytes.
	if got := len(a.AllBytes()); got != 3 {
		t.Errorf("len(bytes) = %d, want 3", got)
	}
}

func TestGprintfUnresolvedVariableFails(t *testing.T) {
	src := "      LDI 1\n      gprintf(\"%d\", unknown)\n"
	_, err := assembleSource(t, src)
	if err == nil {
		t.Fatal("expected unresolved gprintf variable to fail assembly")
	}
}

func TestRenderGprintfIndirect(t *testing.T) {
	src := "count EQU 0x30\n      LDI 1\n      gprintf(\"val = %d\", *count)\n"
	a, err := assembleSource(t, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	g := a.gprintfs[0]
	if !g.Vars[0].Indirect {
		t.Fatal("expected leading '*' to mark the variable indirect")
	}

	ram := map[uint16]uint8{0x30: 0x07, 0x31: 0x00}
	got := renderGprintf(g, func(addr uint16) uint8 { return ram[addr] })
	if got != "val = 7" {
		t.Errorf("rendered %q, want %q", got, "val = 7")
	}
}

func TestRenderGprintfHexWidth(t *testing.T) {
	g := Gprintf{
		Format: "addr=%04x",
		Vars:   []GprintfVar{{Type: GprintfHex, Width: 4, ResolvedData: 0x2A}},
		Subs:   []string{"%04x"},
	}
	got := renderGprintf(g, func(uint16) uint8 { return 0 })
	if got != "addr=002a" {
		t.Errorf("rendered %q, want %q", got, "addr=002a")
	}
}

func TestRenderGprintfBinary(t *testing.T) {
	g := Gprintf{
		Format: "%08b",
		Vars:   []GprintfVar{{Type: GprintfBin, Width: 8, ResolvedData: 0xA5}},
		Subs:   []string{"%08b"},
	}
	got := renderGprintf(g, func(uint16) uint8 { return 0 })
	if got != "10100101" {
		t.Errorf("rendered %q, want %q", got, "10100101")
	}
}

func TestRenderGprintfString(t *testing.T) {
	// %s reads a length-prefixed string from RAM at the resolved address.
	g := Gprintf{
		Format: "%s",
		Vars:   []GprintfVar{{Type: GprintfStr, ResolvedData: 0x40}},
		Subs:   []string{"%s"},
	}
	ram := map[uint16]uint8{0x40: 2, 0x41: 'h', 0x42: 'i'}
	got := renderGprintf(g, func(addr uint16) uint8 { return ram[addr] })
	if got != "hi" {
		t.Errorf("rendered %q, want %q", got, "hi")
	}
}

func TestUpdateGprintfPCDebounce(t *testing.T) {
	src := "      LDI 1\n      gprintf(\"%d\", 5)\n"
	a, err := assembleSource(t, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	pc := a.gprintfs[0].Address
	read := func(uint16) uint8 { return 0 }

	if got := a.UpdateGprintfPC(pc, read); len(got) != 1 {
		t.Fatalf("first visit rendered %d strings, want 1", len(got))
	}
	if got := a.UpdateGprintfPC(pc, read); len(got) != 0 {
		t.Fatalf("repeat visit rendered %d strings, want 0 (debounce)", len(got))
	}
	if got := a.UpdateGprintfPC(pc+1, read); len(got) != 0 {
		t.Fatalf("other pc rendered %d strings, want 0", len(got))
	}
	if got := a.UpdateGprintfPC(pc, read); len(got) != 1 {
		t.Fatalf("revisit rendered %d strings, want 1 (flag cleared)", len(got))
	}
}
