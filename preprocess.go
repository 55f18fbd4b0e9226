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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Macro is a parameterized, not-yet-expanded macro body captured
// between %MACRO and %ENDM.
type Macro struct {
	Name       string
	Params     []string
	Lines      []string
	Complete   bool
	SourceFile string
	SourceLine int
}

func isBlankLine(text string) bool {
	return strings.TrimSpace(text) == ""
}

// handleInclude reads an %include target file, tagging every resulting
// line with its origin for diagnostics. Backslashes in the path are
// rewritten to forward slashes unconditionally so Windows-style paths
// open everywhere.
func (a *Assembler) handleInclude(tokens []string, rawLine string, lineIndex int) ([]LineToken, error) {
	if len(tokens) != 2 {
		return nil, fmt.Errorf("bad %%include statement: %q on line %d", rawLine, lineIndex)
	}

	target := strings.Trim(tokens[1], "'\"")
	filepath := a.includePath + target
	filepath = strings.ReplaceAll(filepath, "\\", "/")

	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open include file %q: %w", filepath, err)
	}
	defer f.Close()

	var includeLines []LineToken
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		includeLines = append(includeLines, LineToken{
			Text:        scanner.Text(),
			FromInclude: true,
			IncludeName: filepath,
			IncludeLine: n,
		})
		n++
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("bad line in include file %q: %w", filepath, err)
	}

	return includeLines, nil
}

// handleMacroStart begins collecting a macro body; tokens[1] is the
// macro name, the remaining tokens its formal parameters.
func handleMacroStart(tokens []string, sourceFile string, sourceLine int) (Macro, error) {
	if len(tokens) < 2 {
		return Macro{}, fmt.Errorf("bad macro: missing name in %q on line %d", sourceFile, sourceLine)
	}
	return Macro{
		Name:       tokens[1],
		Params:     append([]string(nil), tokens[2:]...),
		SourceFile: sourceFile,
		SourceLine: sourceLine,
	}, nil
}

// preProcess resolves %include and %MACRO/%ENDM over lineTokens,
// recursing into included files with doMacros=false so an include
// cannot define macros of its own. Macro expansion is applied to the
// returned stream only at the top-level call (doMacros=true).
func (a *Assembler) preProcess(lineTokens []LineToken, doMacros bool) ([]LineToken, error) {
	var macros []Macro
	var building *Macro

	out := make([]LineToken, 0, len(lineTokens))

	for i := 0; i < len(lineTokens); i++ {
		lt := lineTokens[i]
		if isBlankLine(lt.Text) {
			out = append(out, lt)
			continue
		}

		tokens := tokeniseLine(lt.Text)
		if len(tokens) == 0 {
			out = append(out, lt)
			continue
		}

		first := strings.ToUpper(tokens[0])
		sourceFile := a.sourceFile
		sourceLine := i + 1
		if lt.FromInclude {
			sourceFile = lt.IncludeName
			sourceLine = lt.IncludeLine + 1
		}

		switch {
		case first == "%INCLUDE":
			includeLines, err := a.handleInclude(tokens, lt.Text, sourceLine)
			if err != nil {
				return nil, err
			}
			processed, err := a.preProcess(includeLines, false)
			if err != nil {
				return nil, fmt.Errorf("bad include file %q: %w", tokens[1], err)
			}
			out = append(out, processed...)
			continue

		case doMacros && first == "%MACRO":
			if building != nil {
				return nil, fmt.Errorf("bad macro: %q nested inside %q in %q on line %d", lt.Text, building.Name, sourceFile, sourceLine)
			}
			m, err := handleMacroStart(tokens, sourceFile, sourceLine)
			if err != nil {
				return nil, err
			}
			building = &m
			continue

		case doMacros && building != nil && first == "%ENDM":
			for _, existing := range macros {
				if existing.Name == building.Name {
					return nil, fmt.Errorf("duplicate macro name %q in %q on line %d", building.Name, building.SourceFile, building.SourceLine)
				}
			}
			building.Complete = true
			macros = append(macros, *building)
			building = nil
			continue
		}

		if doMacros && building != nil {
			building.Lines = append(building.Lines, lt.Text)
			continue
		}

		out = append(out, lt)
	}

	if building != nil && !building.Complete {
		return nil, fmt.Errorf("bad macro: missing 'ENDM' in %q on line %d", building.SourceFile, building.SourceLine)
	}

	if doMacros {
		expanded, err := expandMacros(macros, out, a.diagnostics)
		if err != nil {
			return nil, err
		}
		return expanded, nil
	}

	return out, nil
}

// expandMacros scans lineTokens for invocations of each collected
// macro and substitutes its body, hygienically renaming every label the
// body declares with a per-invocation unique integer suffix. A macro
// never invoked produces a warning only; one invoked with too few
// arguments fails.
func expandMacros(macros []Macro, lineTokens []LineToken, diagnostics io.Writer) ([]LineToken, error) {
	instanceID := 0

	for _, macro := range macros {
		invoked := false
		missingParams := false

		i := 0
		for i < len(lineTokens) {
			lt := lineTokens[i]
			if isBlankLine(lt.Text) {
				i++
				continue
			}

			tokens := tokeniseLine(lt.Text)
			matchIdx := -1
			for t, tok := range tokens {
				if tok == macro.Name {
					matchIdx = t
					break
				}
			}
			if matchIdx < 0 {
				i++
				continue
			}
			invoked = true
			if len(tokens)-matchIdx <= len(macro.Params) {
				missingParams = true
				i++
				continue
			}

			expanded := expandMacroInvocation(macro, tokens, matchIdx, instanceID)
			instanceID++

			lineTokens = append(lineTokens[:i], append(expanded, lineTokens[i+1:]...)...)
			i += len(expanded)
		}

		if !invoked {
			fmt.Fprintf(diagnostics, "Warning, macro is never called: %q in %q on line %d\n", macro.Name, macro.SourceFile, macro.SourceLine)
			continue
		}
		if missingParams {
			return nil, fmt.Errorf("missing macro parameters: %q in %q on line %d", macro.Name, macro.SourceFile, macro.SourceLine)
		}
	}

	return lineTokens, nil
}

// expandMacroInvocation builds the replacement LineTokens for one
// invocation: substitute parameters, collect the body's own column-0
// labels, and append instanceID to every occurrence of those labels so
// concurrent invocations don't collide.
func expandMacroInvocation(macro Macro, callTokens []string, matchIdx int, instanceID int) []LineToken {
	var labels []string
	for _, bodyLine := range macro.Lines {
		if isBlankLine(bodyLine) {
			continue
		}
		if !strings.HasPrefix(bodyLine, " ") && !strings.HasPrefix(bodyLine, "\t") {
			bt := tokeniseLine(bodyLine)
			if len(bt) > 0 {
				labels = append(labels, bt[0])
			}
		}
	}
	labels = lo.Uniq(labels)

	result := make([]LineToken, 0, len(macro.Lines))
	for ml, bodyLine := range macro.Lines {
		mtokens := tokeniseLine(bodyLine)
		hasColumnZeroLabel := !strings.HasPrefix(bodyLine, " ") && !strings.HasPrefix(bodyLine, "\t") && len(mtokens) > 0

		for mt := range mtokens {
			for p, param := range macro.Params {
				if mtokens[mt] == param {
					mtokens[mt] = callTokens[matchIdx+1+p]
				}
			}
		}

		var text strings.Builder
		if matchIdx > 0 && ml == 0 {
			text.WriteString(callTokens[0])
		}
		for mt, tok := range mtokens {
			if !hasColumnZeroLabel || mt != 0 {
				text.WriteByte(' ')
			}
			text.WriteString(tok)
		}

		lineText := text.String()
		for _, label := range labels {
			if idx := strings.Index(lineText, label); idx >= 0 {
				suffix := strconv.Itoa(instanceID)
				lineText = lineText[:idx+len(label)] + suffix + lineText[idx+len(label):]
			}
		}

		result = append(result, LineToken{Text: lineText})
	}

	return result
}
