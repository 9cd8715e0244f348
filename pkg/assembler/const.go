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

import "github.com/lassandro/gobric/pkg/machine"

type opInfo struct {
	code  machine.Op
	unary bool
}

// Operation mnemonics. Case-insensitive in the source.
var operations = map[string]opInfo{
	"and": {machine.OP_AND, false},
	"or":  {machine.OP_OR, false},
	"xor": {machine.OP_XOR, false},
	"add": {machine.OP_ADD, false},
	"sub": {machine.OP_SUB, false},
	"not": {machine.OP_NOT, true},
	"lsl": {machine.OP_LSL, true},
	"lsr": {machine.OP_LSR, true},
	"rol": {machine.OP_ROL, true},
	"ror": {machine.OP_ROR, true},
	"asr": {machine.OP_ASR, true},
	"inc": {machine.OP_INC, true},
	"dec": {machine.OP_DEC, true},
}

// Jump keywords. JGE and JNE share a mask because "not less" and "not
// equal" coincide on the three-way sign result.
var jumps = map[string]uint16{
	"JLT": 0b100,
	"JEQ": 0b010,
	"JGT": 0b001,
	"JLE": 0b110,
	"JGE": 0b101,
	"JNE": 0b101,
	"JMP": 0b111,
}

// Section keywords that define and macro names may not shadow.
var keywords = map[string]bool{
	"begin": true,
	"end":   true,
	"label": true,
}

// isName reports whether s is a valid identifier: one or more of
// [A-Za-z._].
func isName(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '.' || c == '_':
		default:
			return false
		}
	}

	return true
}

// isNumber reports whether s looks like a numeric literal (0x.., 0b..,
// decimal). The actual decode may still reject it.
func isNumber(s string) bool {
	if len(s) == 0 {
		return false
	}

	return s[0] >= '0' && s[0] <= '9'
}

// reservedName reports whether a define or macro may not take this name:
// register names, section keywords and operation mnemonics are off limits.
func reservedName(s string) bool {
	if _, ok := machine.ParseRegister(s); ok {
		return true
	}

	if keywords[s] {
		return true
	}

	if _, ok := operations[lower(s)]; ok {
		return true
	}

	if _, ok := jumps[s]; ok {
		return true
	}

	return false
}

func lower(s string) string {
	b := []byte(s)

	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}

	return string(b)
}
