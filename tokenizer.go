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

// delimiterState is the tokenizer's lexical mode: default whitespace
// splitting, or inside a quoted token where whitespace is preserved.
type delimiterState int

const (
	stateWhitespace delimiterState = iota
	stateQuotes
)

const whitespaceChars = " \n\r\f\t\v"
const quoteChars = "'\""

// tokeniseLine splits one source line into whitespace-separated tokens,
// treating a quoted run (opened and closed by ' or ") as a single token
// that keeps its internal whitespace and its surrounding quote
// characters.
func tokeniseLine(line string) []string {
	var tokens []string
	var token strings.Builder
	state := stateWhitespace
	delimiterStart := true
	stringStart := false

	for i := 0; i <= len(line); i++ {
		atEnd := i == len(line)
		var ch byte
		if !atEnd {
			ch = line[i]
		}

		if atEnd {
			if state != stateQuotes {
				state = stateWhitespace
				delimiterStart = false
			} else {
				break
			}
		} else if strings.IndexByte(whitespaceChars, ch) >= 0 {
			if state != stateQuotes {
				state = stateWhitespace
				delimiterStart = false
			}
		} else if strings.IndexByte(quoteChars, ch) >= 0 {
			state = stateQuotes
			stringStart = !stringStart
		}

		switch state {
		case stateWhitespace:
			if delimiterStart {
				if !atEnd && strings.IndexByte(whitespaceChars, ch) < 0 {
					token.WriteByte(ch)
				}
			} else {
				if token.Len() > 0 {
					tokens = append(tokens, token.String())
				}
				delimiterStart = true
				token.Reset()
			}
		case stateQuotes:
			if stringStart {
				token.WriteByte(ch)
			} else {
				token.WriteByte(ch)
				tokens = append(tokens, token.String())
				state = stateWhitespace
				stringStart = false
				token.Reset()
			}
		}
	}

	return tokens
}

// tokenise splits text on a single delimiter byte, discarding empty
// fields. Used for gprintf's comma-separated variable list.
func tokenise(text string, c byte) []string {
	var result []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == c {
			if i > start {
				result = append(result, text[start:i])
			}
			start = i + 1
		}
	}
	if start < len(text) {
		result = append(result, text[start:])
	}
	return result
}

// isCommentToken reports whether a token begins a comment (';' or '#'
// anywhere in it).
func isCommentToken(token string) bool {
	return strings.ContainsAny(token, ";#")
}
