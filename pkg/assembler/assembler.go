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

// Package assembler translates .basm source into a ROM image and the
// constants mapping table.
//
// The input is split into bracketed sections ([macros], [text],
// [consts ADDR]); defines and macros are collected and expanded textually
// over the remaining sections; [text] lines are numbered from ROM address 0
// and emitted; the constants block follows the text block in ROM together
// with a mapping that initializes RAM at reset. Labels resolve in a second
// pass, so forward references are allowed.
package assembler

import (
	"strings"

	"github.com/lassandro/gobric/pkg/encoding"
	"github.com/lassandro/gobric/pkg/machine"
)

type labelUse struct {
	addr int
	pos  Cursor
}

type assembly struct {
	ns       *names
	symtable *SymTable
	rom      []uint16
	labels   map[string]uint16
	uses     map[string][]labelUse
	errs     []error
}

// Assemble runs the whole chain over one source text. Errors are collected
// per line and returned together; the image is only returned when there are
// none. The symbol table argument may be nil.
func Assemble(src string, symtable *SymTable) (*Image, []error) {
	secs, errs := splitSections(src)

	if !secs.hasText {
		errs = append(errs, &MissingTextSectionError{})
		return nil, errs
	}

	ns, merrs := collectMacros(secs.macros)
	errs = append(errs, merrs...)

	text, xerrs := expand(secs.text, ns)
	errs = append(errs, xerrs...)

	consts, cerrs := expand(secs.consts, ns)
	errs = append(errs, cerrs...)

	asm := assembly{
		ns:       ns,
		symtable: symtable,
		labels:   make(map[string]uint16),
		uses:     make(map[string][]labelUse),
	}

	for _, line := range text {
		asm.textLine(line)
	}

	// Trailing data word, so a label bound at the very end of [text] still
	// names a real instruction
	asm.rom = append(asm.rom, machine.BIT15)

	constsStart := len(asm.rom)

	for _, line := range consts {
		asm.constLine(line, secs.constsMount, constsStart)
	}

	var mappings []machine.Mapping

	if secs.hasConsts {
		mappings = append(mappings, machine.Mapping{
			Rom:    uint16(constsStart),
			Length: uint16(len(asm.rom) - constsStart),
			Ram:    secs.constsMount,
		})
	}

	if len(asm.rom) > 0xFFFF {
		asm.errs = append(asm.errs, &SyntaxError{
			Position: Cursor{Line: 0},
			Detail:   "Program does not fit in ROM",
		})
	}

	asm.resolveLabels()

	errs = append(errs, asm.errs...)

	if len(errs) > 0 {
		return nil, errs
	}

	return &Image{Rom: asm.rom, Mappings: mappings}, nil
}

func (asm *assembly) emit(word uint16, line sourceLine) {
	if asm.symtable != nil {
		asm.symtable.Lines[uint16(len(asm.rom))] = line.number
	}

	asm.rom = append(asm.rom, word)
}

func (asm *assembly) bindLabel(name string, addr uint16, pos Cursor) {
	if !isName(name) {
		asm.errs = append(asm.errs, &SyntaxError{
			Position: pos, Detail: "Invalid label name",
		})
		return
	}

	if _, exists := asm.labels[name]; exists {
		asm.errs = append(asm.errs, &DuplicateLabelError{
			Position: pos, Received: name,
		})
		return
	}

	asm.labels[name] = addr

	if asm.symtable != nil {
		asm.symtable.Labels[addr] = name
	}
}

// parseLabel handles `label NAME:` lines, shared between [text] and
// [consts].
func (asm *assembly) parseLabel(line sourceLine, addr uint16) {
	pos := Cursor{Line: line.number, Text: line.text}
	rest := strings.TrimSpace(line.text[len("label"):])

	if !strings.HasSuffix(rest, ":") {
		asm.errs = append(asm.errs, &SyntaxError{
			Position: pos, Detail: "A label must end with ':'",
		})
		return
	}

	asm.bindLabel(strings.TrimSpace(rest[:len(rest)-1]), addr, pos)
}

func (asm *assembly) textLine(line sourceLine) {
	pos := Cursor{Line: line.number, Text: line.text}
	fields := strings.Fields(line.text)

	if len(fields) == 0 {
		return
	}

	if fields[0] == "label" {
		asm.parseLabel(line, uint16(len(asm.rom)))
		return
	}

	// bare unconditional jump
	if len(fields) == 1 && fields[0] == "JMP" {
		asm.emit(0b0000000000000111, line)
		return
	}

	text := line.text
	var targetPart, jumpPart string
	var seenEq, seenSC bool

	if i := strings.IndexByte(text, ';'); i >= 0 {
		jumpPart = strings.TrimSpace(text[i+1:])
		text = text[:i]
		seenSC = true

		if strings.IndexByte(jumpPart, ';') >= 0 {
			asm.errs = append(asm.errs, &SyntaxError{
				Position: pos, Detail: "More than one ';'",
			})
			return
		}
	}

	if i := strings.IndexByte(text, '='); i >= 0 {
		targetPart = strings.TrimSpace(text[:i])
		text = text[i+1:]
		seenEq = true

		if strings.IndexByte(text, '=') >= 0 {
			asm.errs = append(asm.errs, &SyntaxError{
				Position: pos, Detail: "More than one '='",
			})
			return
		}
	}

	calcPart := strings.TrimSpace(text)

	if calcPart == "" {
		asm.errs = append(asm.errs, &SyntaxError{
			Position: pos, Detail: "No operation",
		})
		return
	}

	target := machine.REG_NONE

	if seenEq {
		reg, ok := machine.ParseRegister(targetPart)

		if !ok {
			asm.errs = append(asm.errs, &BadOperandError{
				Position: pos,
				Detail:   "'" + targetPart + "' is not a target register",
			})
			return
		}

		target = reg
	}

	var jump uint16

	if seenSC {
		mask, ok := jumps[jumpPart]

		if !ok {
			asm.errs = append(asm.errs, &SyntaxError{
				Position: pos,
				Detail:   "'" + jumpPart + "' is not a jump condition",
			})
			return
		}

		jump = mask
	}

	operands := strings.Split(calcPart, ",")
	head := strings.TrimSpace(operands[0])

	rest := make([]string, 0, len(operands)-1)
	for _, operand := range operands[1:] {
		rest = append(rest, strings.TrimSpace(operand))
	}

	if info, ok := operations[lower(head)]; ok {
		asm.computation(info, rest, target, jump, line)
		return
	}

	asm.dataWord(head, rest, target, jump, line)
}

// computation emits an ALU instruction. The first written operand is the
// ALU's X input and the second its Y input; one of the two must be the
// accumulator (sw selects which side feeds it), or the first may be the
// literal 0 (zx).
func (asm *assembly) computation(
	info opInfo,
	operands []string,
	target machine.Register,
	jump uint16,
	line sourceLine,
) {
	pos := Cursor{Line: line.number, Text: line.text}
	inst := machine.Instr{Op: info.code, Target: target, Jump: jump}

	argc := 2
	if info.unary {
		argc = 1
	}

	if len(operands) != argc {
		asm.errs = append(asm.errs, &BadOperandError{
			Position: pos, Detail: "Wrong number of operands",
		})
		return
	}

	if info.unary {
		if operands[0] == "0" {
			inst.ZX = true
		} else {
			reg, ok := machine.ParseRegister(operands[0])

			if !ok {
				asm.errs = append(asm.errs, &BadOperandError{
					Position: pos,
					Detail:   "'" + operands[0] + "' is not a register",
				})
				return
			}

			inst.Source = reg
		}
	} else {
		a, b := operands[0], operands[1]

		var other string

		switch {
		case a == "0":
			if b == "0" {
				asm.errs = append(asm.errs, &BadOperandError{
					Position: pos,
					Detail:   "The second operand may not be zero",
				})
				return
			}

			inst.SW, inst.ZX = true, true
			other = b

		case a == "A":
			inst.SW = true
			other = b

		case b == "A":
			other = a

		default:
			asm.errs = append(asm.errs, &BadOperandError{
				Position: pos,
				Detail:   "One operand must be A, or the first the literal 0",
			})
			return
		}

		reg, ok := machine.ParseRegister(other)

		if !ok {
			asm.errs = append(asm.errs, &BadOperandError{
				Position: pos, Detail: "'" + other + "' is not a register",
			})
			return
		}

		inst.Source = reg
	}

	word, err := machine.Encode(inst)

	if err != nil {
		asm.errs = append(asm.errs, &SyntaxError{
			Position: pos, Detail: err.Error(),
		})
		return
	}

	asm.emit(word, line)
}

// dataWord emits a ci=1 immediate load: a number, a define, or a label
// reference patched in the second pass. The assignment must target A and
// cannot carry a jump.
func (asm *assembly) dataWord(
	head string,
	operands []string,
	target machine.Register,
	jump uint16,
	line sourceLine,
) {
	pos := Cursor{Line: line.number, Text: line.text}

	if len(operands) > 0 {
		asm.errs = append(asm.errs, &UnknownOpError{
			Position: pos, Received: head,
		})
		return
	}

	if target != machine.REG_A {
		asm.errs = append(asm.errs, &BadOperandError{
			Position: pos, Detail: "An immediate load must target A",
		})
		return
	}

	if jump != 0 {
		asm.errs = append(asm.errs, &BadOperandError{
			Position: pos, Detail: "An immediate load cannot jump",
		})
		return
	}

	value, isValue := asm.ns.defines[head]

	if !isValue && isNumber(head) {
		decoded, err := encoding.DecodeNumber(head)

		if err != nil {
			asm.errs = append(asm.errs, &SyntaxError{
				Position: pos,
				Detail:   "Unable to parse '" + head + "' as a number",
			})
			return
		}

		value, isValue = decoded, true
	}

	if isValue {
		if value > 0x7FFF {
			asm.errs = append(asm.errs, &ImmediateTooLargeError{
				Position: pos, Received: uint32(value),
			})
			return
		}

		asm.emit(machine.BIT15|value, line)
		return
	}

	if !isName(head) {
		asm.errs = append(asm.errs, &SyntaxError{
			Position: pos, Detail: "Unable to parse '" + head + "'",
		})
		return
	}

	asm.uses[head] = append(asm.uses[head], labelUse{
		addr: len(asm.rom), pos: pos,
	})
	asm.emit(machine.BIT15, line)
}

// constLine handles the [consts] section: labels bind to RAM addresses at
// the mount point, `M = NUMBER` lines append literal words to the constants
// block.
func (asm *assembly) constLine(line sourceLine, mount uint16, start int) {
	pos := Cursor{Line: line.number, Text: line.text}
	fields := strings.Fields(line.text)

	if len(fields) == 0 {
		return
	}

	if fields[0] == "label" {
		asm.parseLabel(line, mount+uint16(len(asm.rom)-start))
		return
	}

	if fields[0] == "M" {
		i := strings.IndexByte(line.text, '=')

		if i < 0 {
			asm.errs = append(asm.errs, &SyntaxError{
				Position: pos, Detail: "A memory cell needs a value",
			})
			return
		}

		literal := strings.TrimSpace(line.text[i+1:])
		value, isValue := asm.ns.defines[literal]

		if !isValue {
			decoded, err := encoding.DecodeNumber(literal)

			if err != nil {
				asm.errs = append(asm.errs, &SyntaxError{
					Position: pos,
					Detail:   "Invalid number '" + literal + "'",
				})
				return
			}

			value = decoded
		}

		asm.emit(value, line)
		return
	}

	asm.errs = append(asm.errs, &SyntaxError{
		Position: pos,
		Detail:   "Only comments, labels and memory allowed in [consts]",
	})
}

// resolveLabels is the second pass: every recorded use is patched with the
// resolved address, which must fit the 15-bit immediate field.
func (asm *assembly) resolveLabels() {
	for name, uses := range asm.uses {
		addr, exists := asm.labels[name]

		if !exists {
			for _, use := range uses {
				asm.errs = append(asm.errs, &UndefinedLabelError{
					Position: use.pos, Received: name,
				})
			}

			continue
		}

		for _, use := range uses {
			if addr > 0x7FFF {
				asm.errs = append(asm.errs, &ImmediateTooLargeError{
					Position: use.pos, Received: uint32(addr),
				})
				continue
			}

			asm.rom[use.addr] |= addr
		}
	}
}
