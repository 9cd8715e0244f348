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

package uart

import "github.com/lassandro/gobric/pkg/machine"

// UART register window in the RAM address space.
const (
	U_BAUD uint16 = 0x6000
	U_OUT  uint16 = 0x6001
	U_IN   uint16 = 0x6002
	U_IFL  uint16 = 0x6003
	U_OFL  uint16 = 0x6004
)

// Status bits, read from U_IFL.
const (
	FLAG_IO uint16 = 1 << 0 // input FIFO overflowed, sticky
	FLAG_DA uint16 = 1 << 1 // data available in the input FIFO
	FLAG_OR uint16 = 1 << 2 // output FIFO has room
)

// Control bits, written to U_OFL. OW and IR are advisory notes from the
// program to the host; RU clears both FIFOs and the overflow bit.
const (
	CTRL_OW uint16 = 1 << 0
	CTRL_IR uint16 = 1 << 1
	CTRL_RU uint16 = 1 << 2
)

// FIFOCap is the capacity of each FIFO in bytes.
const FIFOCap = 256

// Uart is the serial port device: two bounded byte FIFOs, a baud register
// (informational, the VM transfers instantaneously) and an overflow bit.
// The host side feeds and drains it between machine steps; the program side
// goes through the register window.
type Uart struct {
	in       []byte
	out      []byte
	baud     uint16
	control  uint16
	overflow bool
}

func New() *Uart {
	return &Uart{}
}

// Attach registers the device's register window on mem.
func (u *Uart) Attach(mem *machine.Memory) {
	mem.Map(U_BAUD, U_OFL, u)
}

func (u *Uart) Read(addr uint16) uint16 {
	switch addr {
	case U_BAUD:
		return u.baud

	case U_IN:
		if len(u.in) == 0 {
			return 0x0000
		}

		value := uint16(u.in[0])
		u.in = u.in[1:]
		return value

	case U_IFL:
		var flags uint16

		if u.overflow {
			flags |= FLAG_IO
		}

		if len(u.in) > 0 {
			flags |= FLAG_DA
		}

		if len(u.out) < FIFOCap {
			flags |= FLAG_OR
		}

		return flags

	case U_OFL:
		return u.control
	}

	// U_OUT reads as zero
	return 0x0000
}

func (u *Uart) Write(addr uint16, value uint16) {
	switch addr {
	case U_BAUD:
		u.baud = value

	case U_OUT:
		// drop when full
		if len(u.out) < FIFOCap {
			u.out = append(u.out, byte(value&0xFF))
		}

	case U_OFL:
		u.control = value & (CTRL_OW | CTRL_IR | CTRL_RU)

		if u.control&CTRL_RU != 0 {
			u.in = nil
			u.out = nil
			u.overflow = false
		}
	}

	// U_IN writes are ignored
}

// FeedIn appends host bytes to the input FIFO, dropping and latching the
// overflow bit once the FIFO is full.
func (u *Uart) FeedIn(p []byte) {
	for _, b := range p {
		if len(u.in) >= FIFOCap {
			u.overflow = true
			continue
		}

		u.in = append(u.in, b)
	}
}

// DrainOut empties the output FIFO and returns its contents.
func (u *Uart) DrainOut() []byte {
	p := u.out
	u.out = nil
	return p
}

func (u *Uart) Baud() uint16 {
	return u.baud
}
