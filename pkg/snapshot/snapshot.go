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

// Package snapshot reads and writes the .bvm machine-state format and the
// .bdb debugger-state format. Both are big-endian throughout; counts are
// 24-bit fields with a zero high byte (breakpoint counts are 16-bit) and
// every labeled section ends with a 0x00 terminator. MMIO registrations and
// execution-finalization state are not represented.
package snapshot

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/lassandro/gobric/pkg/encoding"
	"github.com/lassandro/gobric/pkg/machine"
)

var (
	magicBVM = []byte{'B', 'V', 'M', 0x00}
	magicRMP = []byte{'R', 'M', 'P', 0x00}
	magicROM = []byte{'R', 'O', 'M', 0x00}
	magicRAM = []byte{'R', 'A', 'M', 0x00}
	magicBDB = []byte{'B', 'D', 'B', 0x00}
	magicBPS = []byte{'B', 'P', 'S', 0x00}
)

// VMState is the serialized form of a machine: everything Reset and Step
// observe except MMIO devices.
type VMState struct {
	PC       uint16
	Regs     [machine.NUM_REGS]uint16
	Mappings []machine.Mapping
	Rom      []uint16
	Ram      []uint16
}

// DebugState is the serialized form of a debugging session: the breakpoint
// set plus a complete VMState.
type DebugState struct {
	Breakpoints []uint16
	VM          VMState
}

type BadMagicError struct {
	Section string
}

func (err *BadMagicError) Error() string {
	return fmt.Sprintf("bad magic for %s section", err.Section)
}

type TruncatedError struct {
	Section string
}

func (err *TruncatedError) Error() string {
	return fmt.Sprintf("input ends inside %s section", err.Section)
}

type InconsistentError struct {
	Detail string
}

func (err *InconsistentError) Error() string {
	return fmt.Sprintf("inconsistent snapshot: %s", err.Detail)
}

// EncodeVM serializes a VMState to the .bvm layout.
func EncodeVM(st *VMState) ([]byte, error) {
	if len(st.Mappings) > 0xFFFF {
		return nil, &InconsistentError{Detail: "too many mappings"}
	}

	if len(st.Rom) > 0xFFFF {
		return nil, &InconsistentError{Detail: "ROM too large"}
	}

	if len(st.Ram) != machine.RAMLen {
		return nil, &InconsistentError{Detail: "RAM image is not 65536 words"}
	}

	var buf bytes.Buffer

	// Header: magic, PC as a 24-bit field, registers A D E F G H
	buf.Write(magicBVM)
	writeUint24(&buf, uint32(st.PC))
	buf.WriteByte(0x00)

	writeWords(&buf, st.Regs[:])
	buf.WriteByte(0x00)

	// Rom mappings
	buf.Write(magicRMP)
	writeUint24(&buf, uint32(len(st.Mappings)))
	buf.WriteByte(0x00)

	for _, mapping := range st.Mappings {
		writeWords(&buf, []uint16{mapping.Rom, mapping.Length, mapping.Ram})
		buf.WriteByte(0x00)
	}
	buf.WriteByte(0x00)

	// Rom
	buf.Write(magicROM)
	writeUint24(&buf, uint32(len(st.Rom)))
	buf.WriteByte(0x00)
	writeWords(&buf, st.Rom)
	buf.WriteByte(0x00)

	// Ram, verbatim with no terminator
	buf.Write(magicRAM)
	writeWords(&buf, st.Ram)

	return buf.Bytes(), nil
}

// DecodeVM parses a .bvm image. The input must contain exactly one machine
// state with nothing trailing.
func DecodeVM(data []byte) (*VMState, error) {
	dec := decoder{data: data}

	st, err := dec.vmState()
	if err != nil {
		return nil, err
	}

	if dec.remaining() != 0 {
		return nil, &InconsistentError{Detail: "trailing bytes after RAM"}
	}

	return st, nil
}

// EncodeDebug serializes a DebugState to the .bdb layout. Breakpoints are
// written in ascending order; the set semantics make any order equivalent
// and sorting keeps the output byte-stable.
func EncodeDebug(st *DebugState) ([]byte, error) {
	if len(st.Breakpoints) > 0xFFFF {
		return nil, &InconsistentError{Detail: "too many breakpoints"}
	}

	var buf bytes.Buffer

	buf.Write(magicBDB)
	buf.Write(magicBPS)

	breakpoints := make([]uint16, len(st.Breakpoints))
	copy(breakpoints, st.Breakpoints)
	sort.Slice(breakpoints, func(i, j int) bool {
		return breakpoints[i] < breakpoints[j]
	})

	writeWords(&buf, []uint16{uint16(len(breakpoints))})
	buf.WriteByte(0x00)
	writeWords(&buf, breakpoints)
	buf.WriteByte(0x00)

	vm, err := EncodeVM(&st.VM)
	if err != nil {
		return nil, err
	}

	buf.Write(vm)

	return buf.Bytes(), nil
}

// DecodeDebug parses a .bdb image.
func DecodeDebug(data []byte) (*DebugState, error) {
	dec := decoder{data: data}

	if err := dec.magic(magicBDB, "header"); err != nil {
		return nil, err
	}

	if err := dec.magic(magicBPS, "breakpoints"); err != nil {
		return nil, err
	}

	raw, err := dec.take(2, "breakpoints")
	if err != nil {
		return nil, err
	}
	count := int(raw[0])<<8 | int(raw[1])

	if err := dec.terminator("breakpoints"); err != nil {
		return nil, err
	}

	raw, err = dec.take(2*count, "breakpoints")
	if err != nil {
		return nil, err
	}
	breakpoints := encoding.Words(raw)

	if err := dec.terminator("breakpoints"); err != nil {
		return nil, err
	}

	vm, err := dec.vmState()
	if err != nil {
		return nil, err
	}

	if dec.remaining() != 0 {
		return nil, &InconsistentError{Detail: "trailing bytes after RAM"}
	}

	return &DebugState{Breakpoints: breakpoints, VM: *vm}, nil
}

func writeUint24(buf *bytes.Buffer, v uint32) {
	var scratch [3]byte
	encoding.PutUint24(scratch[:], v)
	buf.Write(scratch[:])
}

func writeWords(buf *bytes.Buffer, words []uint16) {
	raw := make([]byte, 2*len(words))
	encoding.PutWords(raw, words)
	buf.Write(raw)
}

type decoder struct {
	data []byte
}

func (dec *decoder) remaining() int {
	return len(dec.data)
}

func (dec *decoder) take(n int, section string) ([]byte, error) {
	if n > len(dec.data) {
		return nil, &TruncatedError{Section: section}
	}

	raw := dec.data[:n]
	dec.data = dec.data[n:]

	return raw, nil
}

func (dec *decoder) magic(want []byte, section string) error {
	raw, err := dec.take(len(want), section)

	if err != nil {
		return err
	}

	if !bytes.Equal(raw, want) {
		return &BadMagicError{Section: section}
	}

	return nil
}

func (dec *decoder) terminator(section string) error {
	raw, err := dec.take(1, section)

	if err != nil {
		return err
	}

	if raw[0] != 0x00 {
		return &InconsistentError{
			Detail: fmt.Sprintf("missing terminator in %s section", section),
		}
	}

	return nil
}

// uint24 reads a 3-byte count whose high byte must be zero, followed by the
// section terminator.
func (dec *decoder) uint24(section string) (int, error) {
	raw, err := dec.take(3, section)

	if err != nil {
		return 0, err
	}

	value := encoding.Uint24(raw)

	if value > 0xFFFF {
		return 0, &InconsistentError{
			Detail: fmt.Sprintf("oversized count in %s section", section),
		}
	}

	if err := dec.terminator(section); err != nil {
		return 0, err
	}

	return int(value), nil
}

func (dec *decoder) vmState() (*VMState, error) {
	var st VMState

	// Header
	if err := dec.magic(magicBVM, "header"); err != nil {
		return nil, err
	}

	pc, err := dec.uint24("header")
	if err != nil {
		return nil, err
	}
	st.PC = uint16(pc)

	raw, err := dec.take(2*machine.NUM_REGS, "header")
	if err != nil {
		return nil, err
	}
	copy(st.Regs[:], encoding.Words(raw))

	if err := dec.terminator("header"); err != nil {
		return nil, err
	}

	// Rom mappings
	if err := dec.magic(magicRMP, "mappings"); err != nil {
		return nil, err
	}

	count, err := dec.uint24("mappings")
	if err != nil {
		return nil, err
	}

	st.Mappings = make([]machine.Mapping, 0, count)
	for i := 0; i < count; i++ {
		raw, err := dec.take(6, "mappings")
		if err != nil {
			return nil, err
		}

		entry := encoding.Words(raw)
		st.Mappings = append(st.Mappings, machine.Mapping{
			Rom:    entry[0],
			Length: entry[1],
			Ram:    entry[2],
		})

		if err := dec.terminator("mappings"); err != nil {
			return nil, err
		}
	}

	if err := dec.terminator("mappings"); err != nil {
		return nil, err
	}

	// Rom
	if err := dec.magic(magicROM, "ROM"); err != nil {
		return nil, err
	}

	count, err = dec.uint24("ROM")
	if err != nil {
		return nil, err
	}

	raw, err = dec.take(2*count, "ROM")
	if err != nil {
		return nil, err
	}
	st.Rom = encoding.Words(raw)

	if err := dec.terminator("ROM"); err != nil {
		return nil, err
	}

	// Ram
	if err := dec.magic(magicRAM, "RAM"); err != nil {
		return nil, err
	}

	raw, err = dec.take(2*machine.RAMLen, "RAM")
	if err != nil {
		return nil, err
	}
	st.Ram = encoding.Words(raw)

	return &st, nil
}
