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

package encoding

import (
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
)

// Decodes a numeric literal in the formats: 0xFFFF, 0b1010, 1234
func DecodeNumber(s string) (uint16, error) {
	var result uint64
	var err error

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		result, err = strconv.ParseUint(s[2:], 16, 16)
	} else if strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B") {
		result, err = strconv.ParseUint(s[2:], 2, 16)
	} else {
		result, err = strconv.ParseUint(s, 10, 16)
	}

	if err != nil {
		return 0, errors.New("Invalid numeric literal")
	}

	return uint16(result), nil
}

// PutUint24 stores v as a 3-byte big-endian field. Values above 24 bits are
// truncated.
func PutUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// Uint24 reads a 3-byte big-endian field.
func Uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// PutWords stores words as consecutive big-endian 16-bit fields. The
// destination must hold 2*len(words) bytes.
func PutWords(b []byte, words []uint16) {
	for i, w := range words {
		binary.BigEndian.PutUint16(b[2*i:], w)
	}
}

// Words reads consecutive big-endian 16-bit fields from the whole of b,
// whose length must be even.
func Words(b []byte) []uint16 {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return words
}
