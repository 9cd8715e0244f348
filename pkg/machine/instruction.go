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

// Instr is the decoded form of an instruction word. When CI is set the word
// is an immediate load of Imm into A and the remaining fields are unused.
//
// CI   |1|imm15                        | Load immediate into A
// ALU  |0|src |op     |s|z|tgt |l|e|g  | Compute, write target, maybe jump
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Instr struct {
	CI     bool
	Imm    uint16
	Source Register
	Op     Op
	SW     bool
	ZX     bool
	Target Register
	Jump   uint16
}

// Decode unpacks an instruction word. It fails on the reserved operation
// codes; every other word decodes, so Decode and Encode are inverse on the
// remaining set.
func Decode(word uint16) (Instr, error) {
	if word&BIT15 != 0 {
		return Instr{CI: true, Imm: word &^ BIT15}, nil
	}

	inst := Instr{
		Source: Register((word >> 12) & 0x7),
		Op:     Op((word >> 8) & 0xF),
		SW:     (word>>7)&0x1 == 1,
		ZX:     (word>>6)&0x1 == 1,
		Target: Register((word >> 3) & 0x7),
		Jump:   word & 0x7,
	}

	if inst.Op > OP_ASR {
		return Instr{}, &InvalidOpcodeError{Word: word}
	}

	return inst, nil
}

// Encode packs an instruction into its word form, validating field ranges.
func Encode(inst Instr) (uint16, error) {
	if inst.CI {
		if inst.Imm > 0x7FFF {
			return 0, &InvalidEncodingError{Field: "immediate", Value: inst.Imm}
		}

		return BIT15 | inst.Imm, nil
	}

	if inst.Source > REG_H {
		return 0, &InvalidEncodingError{
			Field: "source", Value: uint16(inst.Source),
		}
	}

	if inst.Target > REG_H {
		return 0, &InvalidEncodingError{
			Field: "target", Value: uint16(inst.Target),
		}
	}

	if inst.Op > OP_ASR {
		return 0, &InvalidEncodingError{Field: "op", Value: uint16(inst.Op)}
	}

	if inst.Jump > 0x7 {
		return 0, &InvalidEncodingError{Field: "jump", Value: inst.Jump}
	}

	var word uint16
	word |= uint16(inst.Source) << 12
	word |= uint16(inst.Op) << 8

	if inst.SW {
		word |= 1 << 7
	}

	if inst.ZX {
		word |= 1 << 6
	}

	word |= uint16(inst.Target) << 3
	word |= inst.Jump

	return word, nil
}
