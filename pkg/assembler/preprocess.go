// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package assembler

import (
	"strings"

	"github.com/lassandro/gobric/pkg/encoding"
)

// sourceLine is a trimmed, non-blank, non-comment line with its 1-based
// position in the original input.
type sourceLine struct {
	number int
	text   string
}

type sections struct {
	macros      []sourceLine
	text        []sourceLine
	consts      []sourceLine
	hasText     bool
	hasConsts   bool
	constsMount uint16
}

// splitSections assigns each line of the input to its bracketed section.
// Sections must appear in [macros], [text], [consts ADDR] order; only [text]
// is required (the caller checks hasText).
func splitSections(src string) (*sections, []error) {
	var secs sections
	var errs []error

	const (
		sectionNone = iota
		sectionMacros
		sectionText
		sectionConsts
	)

	current := sectionNone

	for number, raw := range strings.Split(src, "\n") {
		pos := Cursor{Line: number + 1, Text: strings.TrimSpace(raw)}
		text := pos.Text

		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			switch {
			case text == "[macros]":
				if current >= sectionMacros {
					errs = append(errs, &SyntaxError{
						Position: pos, Detail: "Bad section ordering",
					})
					continue
				}

				current = sectionMacros

			case text == "[text]":
				if current >= sectionText {
					errs = append(errs, &SyntaxError{
						Position: pos, Detail: "Bad section ordering",
					})
					continue
				}

				current = sectionText
				secs.hasText = true

			case strings.HasPrefix(text, "[consts"):
				if current >= sectionConsts {
					errs = append(errs, &SyntaxError{
						Position: pos, Detail: "Bad section ordering",
					})
					continue
				}

				mount, err := encoding.DecodeNumber(
					strings.TrimSpace(text[len("[consts") : len(text)-1]),
				)

				if err != nil {
					errs = append(errs, &SyntaxError{
						Position: pos,
						Detail:   "Invalid [consts] mount address",
					})
					continue
				}

				current = sectionConsts
				secs.hasConsts = true
				secs.constsMount = mount

			default:
				errs = append(errs, &SyntaxError{
					Position: pos,
					Detail:   "Unknown section header " + text,
				})
			}

			continue
		}

		line := sourceLine{number: pos.Line, text: text}

		switch current {
		case sectionMacros:
			secs.macros = append(secs.macros, line)
		case sectionText:
			secs.text = append(secs.text, line)
		case sectionConsts:
			secs.consts = append(secs.consts, line)
		default:
			errs = append(errs, &SyntaxError{
				Position: pos, Detail: "Text outside any section",
			})
		}
	}

	return &secs, errs
}

type macroDef struct {
	params []string
	body   []sourceLine
}

// names holds everything the [macros] section binds.
type names struct {
	defines map[string]uint16
	macros  map[string]*macroDef
}

func (ns *names) taken(name string) bool {
	if reservedName(name) {
		return true
	}

	if _, ok := ns.defines[name]; ok {
		return true
	}

	if _, ok := ns.macros[name]; ok {
		return true
	}

	return false
}

// collectMacros reads the [macros] section: `define NAME NUMBER` lines and
// `begin NAME (args...)` ... `end` blocks. Body lines are collected
// verbatim.
func collectMacros(lines []sourceLine) (*names, []error) {
	ns := &names{
		defines: make(map[string]uint16),
		macros:  make(map[string]*macroDef),
	}

	var errs []error
	var current *macroDef
	var currentName string
	var currentPos Cursor

	for _, line := range lines {
		pos := Cursor{Line: line.number, Text: line.text}
		fields := strings.Fields(line.text)

		if current != nil {
			if fields[0] == "end" {
				if len(fields) != 1 {
					errs = append(errs, &SyntaxError{
						Position: pos,
						Detail:   "Unexpected text after 'end'",
					})
				}

				ns.macros[currentName] = current
				current = nil
				continue
			}

			current.body = append(current.body, line)
			continue
		}

		switch fields[0] {
		case "define":
			if len(fields) != 3 {
				errs = append(errs, &SyntaxError{
					Position: pos,
					Detail:   "define takes a name and a number",
				})
				continue
			}

			name := fields[1]

			if !isName(name) {
				errs = append(errs, &SyntaxError{
					Position: pos, Detail: "Invalid define name",
				})
				continue
			}

			if ns.taken(name) {
				errs = append(errs, &NameConflictError{
					Position: pos, Received: name,
				})
				continue
			}

			value, err := encoding.DecodeNumber(fields[2])

			if err != nil {
				errs = append(errs, &SyntaxError{
					Position: pos, Detail: "Invalid define value",
				})
				continue
			}

			ns.defines[name] = value

		case "begin":
			if len(fields) < 2 {
				errs = append(errs, &SyntaxError{
					Position: pos, Detail: "No name for macro",
				})
				continue
			}

			name := fields[1]

			if !isName(name) || ns.taken(name) {
				errs = append(errs, &NameConflictError{
					Position: pos, Received: name,
				})
				continue
			}

			args := strings.Join(fields[2:], "")

			if !strings.HasPrefix(args, "(") || !strings.HasSuffix(args, ")") {
				errs = append(errs, &SyntaxError{
					Position: pos,
					Detail:   "Invalid macro argument list",
				})
				continue
			}

			def := &macroDef{}
			seen := make(map[string]bool)

			if inner := args[1 : len(args)-1]; inner != "" {
				for _, param := range strings.Split(inner, ",") {
					if !isName(param) || reservedName(param) ||
						ns.taken(param) || seen[param] {
						errs = append(errs, &NameConflictError{
							Position: pos, Received: param,
						})
						continue
					}

					seen[param] = true
					def.params = append(def.params, param)
				}
			}

			current = def
			currentName = name
			currentPos = pos

		default:
			errs = append(errs, &SyntaxError{
				Position: pos, Detail: "Invalid text in [macros]",
			})
		}
	}

	if current != nil {
		errs = append(errs, &SyntaxError{
			Position: currentPos,
			Detail:   "Macro '" + currentName + "' is never ended",
		})
	}

	return ns, errs
}

// parseInvocation recognizes a `NAME(arg, ...)` line. Instruction lines
// never contain parentheses, so the shape is unambiguous.
func parseInvocation(text string) (string, []string, bool) {
	open := strings.IndexByte(text, '(')

	if open <= 0 || !strings.HasSuffix(text, ")") {
		return "", nil, false
	}

	name := strings.TrimSpace(text[:open])

	if !isName(name) {
		return "", nil, false
	}

	inner := strings.TrimSpace(text[open+1 : len(text)-1])

	if inner == "" {
		return name, nil, true
	}

	args := strings.Split(inner, ",")

	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}

	return name, args, true
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
	case c >= 'A' && c <= 'Z':
	case c == '.' || c == '_':
	default:
		return false
	}

	return true
}

// replaceWord substitutes whole-word occurrences of a macro parameter.
func replaceWord(text, name, value string) string {
	var sb strings.Builder

	for i := 0; i < len(text); {
		boundary := i == 0 || !isNameByte(text[i-1])

		if boundary && strings.HasPrefix(text[i:], name) {
			end := i + len(name)

			if end == len(text) || !isNameByte(text[end]) {
				sb.WriteString(value)
				i = end
				continue
			}
		}

		sb.WriteByte(text[i])
		i++
	}

	return sb.String()
}

// expand substitutes macro invocations in a single top-down pass. Bodies
// are bound to their arguments textually; a body line that is itself a
// macro invocation is an error, which keeps expansion finite without
// fixed-point iteration.
func expand(lines []sourceLine, ns *names) ([]sourceLine, []error) {
	var out []sourceLine
	var errs []error

	for _, line := range lines {
		name, args, ok := parseInvocation(line.text)

		if !ok {
			out = append(out, line)
			continue
		}

		pos := Cursor{Line: line.number, Text: line.text}
		mac, exists := ns.macros[name]

		if !exists {
			errs = append(errs, &UnknownOpError{
				Position: pos, Received: name,
			})
			continue
		}

		if len(args) != len(mac.params) {
			errs = append(errs, &MacroArityError{
				Position: pos,
				Macro:    name,
				Required: len(mac.params),
				Received: len(args),
			})
			continue
		}

		empty := false
		for _, arg := range args {
			if arg == "" {
				errs = append(errs, &SyntaxError{
					Position: pos,
					Detail:   "Empty argument for macro '" + name + "'",
				})
				empty = true
				break
			}
		}

		if empty {
			continue
		}

		for _, body := range mac.body {
			text := body.text

			for i, param := range mac.params {
				text = replaceWord(text, param, args[i])
			}

			// substitution must never hand the emitters a blank line
			if strings.TrimSpace(text) == "" {
				continue
			}

			if inner, _, shaped := parseInvocation(text); shaped {
				if _, isMacro := ns.macros[inner]; isMacro {
					errs = append(errs, &MacroRecursionError{
						Position: pos, Macro: inner,
					})
					continue
				}
			}

			out = append(out, sourceLine{number: line.number, text: text})
		}
	}

	return out, errs
}
