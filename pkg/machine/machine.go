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

import "math/bits"

// Indices into Machine.Registers.
const (
	IDX_A = iota
	IDX_D
	IDX_E
	IDX_F
	IDX_G
	IDX_H
	NUM_REGS
)

// Machine is a BRIC processor: six 16-bit registers, a program counter into
// ROM, and the memory unit. A program counter equal to or past the ROM end
// is the halted state; there is no separate flag.
type Machine struct {
	PC        uint16
	Registers [NUM_REGS]uint16
	Memory    Memory
}

// Reset zeroes the registers and the program counter and resets memory with
// the given ROM image and mappings.
func (mc *Machine) Reset(rom []uint16, mappings []Mapping) error {
	mc.PC = 0x0000

	for i := range mc.Registers {
		mc.Registers[i] = 0x0000
	}

	return mc.Memory.Reset(rom, mappings)
}

// Halted reports whether the program counter has run off the ROM image.
func (mc *Machine) Halted() bool {
	return int(mc.PC) >= mc.Memory.RomLen()
}

// Reg reads an operand register. REG_NONE reads as zero and REG_MA reads RAM
// (or MMIO) at the current value of A.
func (mc *Machine) Reg(reg Register) uint16 {
	switch reg {
	case REG_NONE:
		return 0x0000
	case REG_A:
		return mc.Registers[IDX_A]
	case REG_MA:
		return mc.Memory.ReadRam(mc.Registers[IDX_A])
	case REG_D:
		return mc.Registers[IDX_D]
	case REG_E:
		return mc.Registers[IDX_E]
	case REG_F:
		return mc.Registers[IDX_F]
	case REG_G:
		return mc.Registers[IDX_G]
	case REG_H:
		return mc.Registers[IDX_H]
	}

	return 0x0000
}

// SetReg writes an operand register. REG_NONE discards the value and REG_MA
// writes RAM (or MMIO) at the current value of A.
func (mc *Machine) SetReg(reg Register, value uint16) {
	switch reg {
	case REG_NONE:
	case REG_A:
		mc.Registers[IDX_A] = value
	case REG_MA:
		mc.Memory.WriteRam(mc.Registers[IDX_A], value)
	case REG_D:
		mc.Registers[IDX_D] = value
	case REG_E:
		mc.Registers[IDX_E] = value
	case REG_F:
		mc.Registers[IDX_F] = value
	case REG_G:
		mc.Registers[IDX_G] = value
	case REG_H:
		mc.Registers[IDX_H] = value
	}
}

// signBit maps the signed interpretation of an ALU result onto the jump mask
// bit it satisfies.
func signBit(value uint16) uint16 {
	switch {
	case value == 0:
		return JUMP_EQ
	case value&BIT15 != 0:
		return JUMP_LT
	}

	return JUMP_GT
}

// Step fetches, decodes and executes one instruction. On a halted machine it
// is a no-op. A decode failure leaves the machine unchanged.
//
// Ordering within a step: the source read (possibly MMIO) happens first,
// then the ALU computes, then the target write (possibly MMIO), then the
// program counter updates. A *A target always writes at the value A held
// when the step began; a jump reads A after the target write.
func (mc *Machine) Step() error {
	if mc.Halted() {
		return nil
	}

	// Can't fail, Halted covers the only out-of-range case
	word, err := mc.Memory.ReadRom(mc.PC)
	if err != nil {
		return err
	}

	inst, err := Decode(word)
	if err != nil {
		return err
	}

	// CI   |1|imm15                        | Load immediate into A
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	if inst.CI {
		mc.Registers[IDX_A] = inst.Imm
		mc.PC++
		return nil
	}

	// ALU  |0|src |op     |s|z|tgt |l|e|g  | Compute, write target, jump
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	indirect := mc.Registers[IDX_A]

	var x, y uint16
	if inst.SW {
		x, y = mc.Reg(REG_A), mc.Reg(inst.Source)
	} else {
		x, y = mc.Reg(inst.Source), mc.Reg(REG_A)
	}

	if inst.ZX {
		x = 0x0000
	}

	var result uint16
	switch inst.Op {
	case OP_AND:
		result = x & y
	case OP_OR:
		result = x | y
	case OP_XOR:
		result = x ^ y
	case OP_NOT:
		result = ^x
	case OP_LSL:
		result = x << 1
	case OP_LSR:
		result = x >> 1
	case OP_ROL:
		result = bits.RotateLeft16(x, 1)
	case OP_ROR:
		result = bits.RotateLeft16(x, -1)
	case OP_ADD:
		result = x + y
	case OP_SUB:
		result = x - y
	case OP_INC:
		result = x + 1
	case OP_DEC:
		result = x - 1
	case OP_ASR:
		result = (x >> 1) | (x & BIT15)
	}

	if inst.Target == REG_MA {
		mc.Memory.WriteRam(indirect, result)
	} else {
		mc.SetReg(inst.Target, result)
	}

	if inst.Jump&signBit(result) != 0 {
		mc.PC = mc.Registers[IDX_A]
	} else {
		mc.PC++
	}

	return nil
}
