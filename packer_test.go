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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPackCustomAddressStartsNewSegment(t *testing.T) {
	src := "seg2 EQU 0x0400\n      LDI 1\nseg2 LDI 2\n"
	a, err := assembleSource(t, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	bc := a.AllBytes()
	if len(bc) != 4 {
		t.Fatalf("len(bytes) = %d, want 4", len(bc))
	}
	if !bc[0].IsCustomAddress || bc[0].Address != defaultStartAddress {
		t.Errorf("bytes[0] = %+v, want custom segment at 0x%04X", bc[0], defaultStartAddress)
	}
	if bc[1].IsCustomAddress {
		t.Error("bytes[1] must not start a segment")
	}
	if !bc[2].IsCustomAddress || bc[2].Address != 0x0400 {
		t.Errorf("bytes[2] = %+v, want custom segment at 0x0400", bc[2])
	}
	if bc[3].IsCustomAddress {
		t.Error("bytes[3] must not start a segment")
	}
}

func TestPackForcedPageBoundary(t *testing.T) {
	// A DB blob longer than a page carries no page-boundary restriction
	// of its own; the packer must synthesize a segment start at +256.
	var sb strings.Builder
	sb.WriteString("      DB \"")
	for i := 0; i < 300; i++ {
		sb.WriteByte('A')
	}
	sb.WriteString("\"\n")

	a, err := assembleSource(t, sb.String())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	bc := a.AllBytes()
	if len(bc) != 300 {
		t.Fatalf("len(bytes) = %d, want 300", len(bc))
	}
	if !bc[0].IsCustomAddress || bc[0].Address != defaultStartAddress {
		t.Errorf("bytes[0] = %+v, want segment start at 0x%04X", bc[0], defaultStartAddress)
	}
	if !bc[256].IsCustomAddress || bc[256].Address != defaultStartAddress+256 {
		t.Errorf("bytes[256] = %+v, want forced segment start at 0x%04X", bc[256], defaultStartAddress+256)
	}
	for i, b := range bc {
		if i != 0 && i != 256 && b.IsCustomAddress {
			t.Errorf("bytes[%d] unexpectedly starts a segment", i)
		}
	}
}

func TestPackCallTableReverseOrder(t *testing.T) {
	src := "_callTable_ EQU 0x00FE\n      CALL foo\n      CALL bar\nfoo RET\nbar RET\n"
	a, err := assembleSource(t, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(a.callTableEntries) != 2 {
		t.Fatalf("len(callTableEntries) = %d, want 2", len(a.callTableEntries))
	}

	bc := a.AllBytes()
	// 2 CALLs + 2 RETs = 6 code bytes, then 2 entries * 2 bytes.
	if len(bc) != 10 {
		t.Fatalf("len(bytes) = %d, want 10", len(bc))
	}
	table := bc[6:]

	// Last-allocated entry (bar) is emitted first, at the lowest address,
	// and opens the call-table segment.
	if !table[0].IsCustomAddress {
		t.Error("first call-table byte must start a segment")
	}
	if table[0].Address != 0x00FC || table[1].Address != 0x00FD {
		t.Errorf("bar slot at 0x%04X/0x%04X, want 0x00FC/0x00FD", table[0].Address, table[1].Address)
	}
	if table[2].Address != 0x00FE || table[3].Address != 0x00FF {
		t.Errorf("foo slot at 0x%04X/0x%04X, want 0x00FE/0x00FF", table[2].Address, table[3].Address)
	}

	// foo at 0x0204, bar at 0x0205, little-endian.
	if table[2].Data != 0x04 || table[3].Data != 0x02 {
		t.Errorf("foo entry = 0x%02X%02X, want address 0x0204", table[3].Data, table[2].Data)
	}
	if table[0].Data != 0x05 || table[1].Data != 0x02 {
		t.Errorf("bar entry = 0x%02X%02X, want address 0x0205", table[1].Data, table[0].Data)
	}
}

func TestCallTableZeroSentinelWarns(t *testing.T) {
	src := "_callTable_ EQU 0\n      CALL foo\nfoo RET\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "source.asm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var diag bytes.Buffer
	a := NewAssembler(nil, &diag)
	if err := a.Assemble(path, defaultStartAddress); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(a.callTableEntries) != 0 {
		t.Errorf("len(callTableEntries) = %d, want 0 when _callTable_ is 0", len(a.callTableEntries))
	}
	if !strings.Contains(diag.String(), "_callTable_") {
		t.Errorf("diagnostics = %q, want _callTable_ sentinel warning", diag.String())
	}
}

func TestAudioRegionOverlapWarnsButSucceeds(t *testing.T) {
	src := "audio EQU 0x0018\n      LDI 0\naudio ST 0x30\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "source.asm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var diag bytes.Buffer
	a := NewAssembler(nil, &diag)
	if err := a.Assemble(path, defaultStartAddress); err != nil {
		t.Fatalf("Assemble: %v (audio overlap must warn, not fail)", err)
	}
	if !strings.Contains(diag.String(), "audio channel") {
		t.Errorf("diagnostics = %q, want audio channel warning", diag.String())
	}
}

func TestPackSizesMatchAddressCursor(t *testing.T) {
	src := "      LDI 1\n      LDWI 0x1234\n      RET\n"
	a, err := assembleSource(t, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := a.currentAddress - a.startAddress; got != 6 {
		t.Errorf("cursor advanced %d bytes, want 6 (2+3+1)", got)
	}
	if got := len(a.AllBytes()); got != 6 {
		t.Errorf("len(bytes) = %d, want 6", got)
	}
}
