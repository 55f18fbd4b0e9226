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

func TestClassifyExpression(t *testing.T) {
	tests := []struct {
		token string
		want  ExpressionType
	}{
		{"42", ExpressionNotExpression},
		{"0x42", ExpressionNotExpression},
		{"label1", ExpressionNotExpression},
		{"1+2", ExpressionValid},
		{"(1+2)*3", ExpressionValid},
		{"foo$bar", ExpressionInvalid},
		{"", ExpressionNotExpression},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := classifyExpression(tt.token); got != tt.want {
				t.Errorf("classifyExpression(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestStringToU16(t *testing.T) {
	tests := []struct {
		token string
		want  uint16
		ok    bool
	}{
		{"42", 42, true},
		{"0x2A", 0x2A, true},
		{"0b101010", 0b101010, true},
		{"052", 052, true},
		{"+7", 7, true},
		{"notanumber", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := stringToU16(tt.token)
			if ok != tt.ok {
				t.Fatalf("stringToU16(%q) ok = %v, want %v", tt.token, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("stringToU16(%q) = %d, want %d", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		text string
		want uint16
	}{
		{"1+2", 3},
		{"2*3+4", 10},
		{"2*(3+4)", 14},
		{"10-3*2", 4},
		{"-5+10", 5},
		{"0x10+0x10", 0x20},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := parseExpr(tt.text, 1)
			if err != nil {
				t.Fatalf("parseExpr(%q) error: %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("parseExpr(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseExprDivisionByZero(t *testing.T) {
	if _, err := parseExpr("1/0", 1); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}
