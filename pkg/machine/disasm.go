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

package machine

import (
	"fmt"
	"strings"
)

// DisassembleInst writes the assembly form of one instruction word. Words
// with a reserved operation code fail; Disassemble renders those as data.
func DisassembleInst(word uint16, sb *strings.Builder) error {
	inst, err := Decode(word)

	if err != nil {
		return err
	}

	if inst.CI {
		fmt.Fprintf(sb, "A = %d", inst.Imm)
		return nil
	}

	if inst.Target != REG_NONE {
		fmt.Fprintf(sb, "%s = ", inst.Target)
	}

	x, y := inst.Source.String(), "A"

	if inst.SW {
		x, y = y, x
	}

	if inst.ZX {
		x = "0"
	}

	switch inst.Op {
	case OP_AND:
		fmt.Fprintf(sb, "and, %s, %s", x, y)
	case OP_OR:
		fmt.Fprintf(sb, "or, %s, %s", x, y)
	case OP_XOR:
		fmt.Fprintf(sb, "xor, %s, %s", x, y)
	case OP_NOT:
		fmt.Fprintf(sb, "not, %s", x)
	case OP_LSL:
		fmt.Fprintf(sb, "lsl, %s", x)
	case OP_LSR:
		fmt.Fprintf(sb, "lsr, %s", x)
	case OP_ROL:
		fmt.Fprintf(sb, "rol, %s", x)
	case OP_ROR:
		fmt.Fprintf(sb, "ror, %s", x)
	case OP_ADD:
		fmt.Fprintf(sb, "add, %s, %s", x, y)
	case OP_SUB:
		fmt.Fprintf(sb, "sub, %s, %s", x, y)
	case OP_INC:
		fmt.Fprintf(sb, "inc, %s", x)
	case OP_DEC:
		fmt.Fprintf(sb, "dec, %s", x)
	case OP_ASR:
		fmt.Fprintf(sb, "asr, %s", x)
	}

	// Mask 011 has no keyword of its own; JGE assembles to 101 alongside
	// JNE because "not less" and "not equal" coincide on the three-way
	// sign result.
	switch inst.Jump {
	case 0b111:
		sb.WriteString("; JMP")
	case 0b110:
		sb.WriteString("; JLE")
	case 0b101:
		sb.WriteString("; JNE")
	case 0b100:
		sb.WriteString("; JLT")
	case 0b011:
		sb.WriteString("; JGE")
	case 0b010:
		sb.WriteString("; JEQ")
	case 0b001:
		sb.WriteString("; JGT")
	}

	return nil
}

// Disassemble renders every word of a ROM image. Words that do not decode
// (constants blocks, arbitrary data) appear as commented raw values. When
// addrs is set each line is prefixed with its ROM address.
func Disassemble(rom []uint16, addrs bool) string {
	var sb strings.Builder

	for addr, word := range rom {
		if addrs {
			fmt.Fprintf(&sb, "%#06x:\t", addr)
		}

		if err := DisassembleInst(word, &sb); err != nil {
			fmt.Fprintf(&sb, "# 0x%04x", word)
		}

		sb.WriteByte('\n')
	}

	return sb.String()
}
