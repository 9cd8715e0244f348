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

package machine_test

import (
	"strings"
	"testing"

	"github.com/lassandro/gobric/pkg/machine"
)

type testMachineState struct {
	Registers [machine.NUM_REGS]uint16
	PC        uint16
	Memory    map[uint16]uint16
}

type testCase struct {
	Name   string
	Rom    []uint16
	Maps   []machine.Mapping
	Steps  uint
	Input  testMachineState
	Output testMachineState
}

// encode builds instruction words for test ROMs; the encodings themselves
// are covered by the instruction tests.
func encode(inst machine.Instr) uint16 {
	word, err := machine.Encode(inst)

	if err != nil {
		panic(err)
	}

	return word
}

func testMachineSuccess(t *testing.T, test *testCase) {
	var mc machine.Machine

	if err := mc.Reset(test.Rom, test.Maps); err != nil {
		t.Fatal(err)
	}

	mc.Registers = test.Input.Registers
	mc.PC = test.Input.PC

	for addr, value := range test.Input.Memory {
		mc.Memory.Poke(addr, value)
	}

	steps := test.Steps
	if steps == 0 {
		steps = 1
	}

	for i := uint(0); i < steps; i++ {
		if err := mc.Step(); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < machine.NUM_REGS; i++ {
		want := test.Output.Registers[i]
		have := mc.Registers[i]

		if have != want {
			t.Errorf(
				"Register mismatch"+
					"\nwant:%#06x (test.Output.Registers[%d])\nhave:%#06x",
				want,
				i,
				have,
			)
		}
	}

	if mc.PC != test.Output.PC {
		t.Errorf(
			"Program counter mismatch\nwant:%#06x\nhave:%#06x",
			test.Output.PC,
			mc.PC,
		)
	}

	for addr, want := range test.Output.Memory {
		if have := mc.Memory.Peek(addr); have != want {
			t.Errorf(
				"Memory mismatch at %#06x\nwant:%#06x\nhave:%#06x",
				addr,
				want,
				have,
			)
		}
	}
}

func TestMachineStep(t *testing.T) {
	tests := []testCase{
		{
			Name: "ImmediateAdd",
			Rom: []uint16{
				0x8005,
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_ADD,
					SW:     true,
					Target: machine.REG_D,
				}),
			},
			Steps: 2,
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0, 7, 0, 0, 0, 0},
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{5, 12, 0, 0, 0, 0},
				PC:        2,
			},
		},
		{
			Name: "IndirectStore",
			Rom: []uint16{
				encode(machine.Instr{
					Source: machine.REG_NONE,
					Op:     machine.OP_INC,
					SW:     true,
					Target: machine.REG_MA,
				}),
			},
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0x1000, 0, 0, 0, 0, 0},
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0x1000, 0, 0, 0, 0, 0},
				PC:        1,
				Memory:    map[uint16]uint16{0x1000: 0x1001},
			},
		},
		{
			Name: "ConditionalJumpTaken",
			Rom: []uint16{
				0x8000,
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_SUB,
					SW:     true,
					Jump:   machine.JUMP_EQ,
				}),
			},
			Steps: 1,
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{8, 8, 0, 0, 0, 0},
				PC:        1,
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{8, 8, 0, 0, 0, 0},
				PC:        8,
			},
		},
		{
			Name: "ConditionalJumpNotTaken",
			Rom: []uint16{
				0x8000,
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_SUB,
					SW:     true,
					Jump:   machine.JUMP_EQ,
				}),
			},
			Steps: 1,
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{8, 9, 0, 0, 0, 0},
				PC:        1,
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{8, 9, 0, 0, 0, 0},
				PC:        2,
			},
		},
		{
			// sw and zx compose: the zero lands on the post-swap X slot, so
			// the computation is 0 - D
			Name: "ZeroXSwapped",
			Rom: []uint16{
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_SUB,
					SW:     true,
					ZX:     true,
					Target: machine.REG_E,
				}),
			},
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0x1234, 5, 0, 0, 0, 0},
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{
					0x1234, 5, 0xFFFB, 0, 0, 0,
				},
				PC: 1,
			},
		},
		{
			Name: "RotateLeft",
			Rom: []uint16{
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_ROL,
					Target: machine.REG_D,
				}),
			},
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0, 0x8001, 0, 0, 0, 0},
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0, 0x0003, 0, 0, 0, 0},
				PC:        1,
			},
		},
		{
			Name: "RotateRight",
			Rom: []uint16{
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_ROR,
					Target: machine.REG_D,
				}),
			},
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0, 0x0003, 0, 0, 0, 0},
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0, 0x8001, 0, 0, 0, 0},
				PC:        1,
			},
		},
		{
			Name: "ArithmeticShiftRight",
			Rom: []uint16{
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_ASR,
					Target: machine.REG_D,
				}),
			},
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0, 0x8002, 0, 0, 0, 0},
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0, 0xC001, 0, 0, 0, 0},
				PC:        1,
			},
		},
		{
			// *A as both source and target: the read happens before the
			// write, both at the A held when the step began
			Name: "IndirectSourceAndTarget",
			Rom: []uint16{
				encode(machine.Instr{
					Source: machine.REG_MA,
					Op:     machine.OP_INC,
					Target: machine.REG_MA,
				}),
			},
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0x2000, 0, 0, 0, 0, 0},
				Memory:    map[uint16]uint16{0x2000: 0x00FF},
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{0x2000, 0, 0, 0, 0, 0},
				PC:        1,
				Memory:    map[uint16]uint16{0x2000: 0x0100},
			},
		},
		{
			// A as ALU target with a jump: the jump reads A after the write
			Name: "JumpAfterTargetWrite",
			Rom: []uint16{
				0x8000, 0x8000, 0x8000, 0x8000, 0x8000,
				encode(machine.Instr{
					Source: machine.REG_A,
					Op:     machine.OP_DEC,
					Target: machine.REG_A,
					Jump:   0b111,
				}),
			},
			Steps: 1,
			Input: testMachineState{
				Registers: [machine.NUM_REGS]uint16{3, 0, 0, 0, 0, 0},
				PC:        5,
			},
			Output: testMachineState{
				Registers: [machine.NUM_REGS]uint16{2, 0, 0, 0, 0, 0},
				PC:        2,
			},
		},
	}

	for i := range tests {
		test := &tests[i]
		t.Run(test.Name, func(t *testing.T) {
			testMachineSuccess(t, test)
		})
	}
}

// A jump is taken iff the sign bit of the result intersects the mask.
func TestJumpMaskTable(t *testing.T) {
	signs := map[uint16]uint16{
		0xFFFF: machine.JUMP_LT,
		0x0000: machine.JUMP_EQ,
		0x0001: machine.JUMP_GT,
	}

	for mask := uint16(0); mask <= 0x7; mask++ {
		for value, sign := range signs {
			rom := []uint16{
				encode(machine.Instr{
					Source: machine.REG_D,
					Op:     machine.OP_ADD,
					Jump:   mask,
				}),
			}

			var mc machine.Machine

			if err := mc.Reset(rom, nil); err != nil {
				t.Fatal(err)
			}

			mc.Registers[machine.IDX_D] = value

			if err := mc.Step(); err != nil {
				t.Fatal(err)
			}

			var want uint16 = 1
			if mask&sign != 0 {
				want = 0 // jump lands on A, which is zero
			}

			if mc.PC != want {
				t.Errorf(
					"Jump mismatch for mask %#03b value %#06x"+
						"\nwant:PC=%#06x\nhave:PC=%#06x",
					mask,
					value,
					want,
					mc.PC,
				)
			}
		}
	}
}

func TestHalt(t *testing.T) {
	var mc machine.Machine

	if err := mc.Reset([]uint16{0x8001, 0x8002}, nil); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if err := mc.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if !mc.Halted() {
		t.Error("Expected the machine to halt")
	}

	if mc.PC != 2 {
		t.Errorf("Program counter mismatch\nwant:%#06x\nhave:%#06x", 2, mc.PC)
	}

	if mc.Registers[machine.IDX_A] != 2 {
		t.Error("Steps after the halt must not execute")
	}
}

func TestInvalidOpcode(t *testing.T) {
	var mc machine.Machine

	if err := mc.Reset([]uint16{0x0D00}, nil); err != nil {
		t.Fatal(err)
	}

	err := mc.Step()

	if _, ok := err.(*machine.InvalidOpcodeError); !ok {
		t.Fatalf("Expected an InvalidOpcodeError, have %v", err)
	}

	if mc.PC != 0 {
		t.Error("A failed step must leave the machine unchanged")
	}
}

func TestResetMappings(t *testing.T) {
	rom := []uint16{0x1111, 0x2222, 0x3333, 0x4444}
	maps := []machine.Mapping{{Rom: 1, Length: 2, Ram: 0x4000}}

	var mc machine.Machine
	mc.Registers[machine.IDX_D] = 0xAAAA
	mc.PC = 0x123

	if err := mc.Reset(rom, maps); err != nil {
		t.Fatal(err)
	}

	if mc.PC != 0 || mc.Registers[machine.IDX_D] != 0 {
		t.Error("Reset must zero the registers and the program counter")
	}

	for i := uint16(0); i < 2; i++ {
		want := rom[1+i]

		if have := mc.Memory.Peek(0x4000 + i); have != want {
			t.Errorf(
				"Mapping mismatch at %#06x\nwant:%#06x\nhave:%#06x",
				0x4000+i,
				want,
				have,
			)
		}
	}
}

func TestResetMappingOutOfRange(t *testing.T) {
	var mc machine.Machine

	err := mc.Reset(
		[]uint16{0x1111},
		[]machine.Mapping{{Rom: 0, Length: 2, Ram: 0}},
	)

	if _, ok := err.(*machine.MappingError); !ok {
		t.Fatalf("Expected a MappingError, have %v", err)
	}

	err = mc.Reset(
		[]uint16{0x1111, 0x2222},
		[]machine.Mapping{{Rom: 0, Length: 2, Ram: 0xFFFF}},
	)

	if _, ok := err.(*machine.MappingError); !ok {
		t.Fatalf("Expected a MappingError, have %v", err)
	}
}

// fakeDevice records MMIO traffic, standing in for a peripheral.
type fakeDevice struct {
	reads  []uint16
	writes map[uint16]uint16
}

func (dev *fakeDevice) Read(addr uint16) uint16 {
	dev.reads = append(dev.reads, addr)
	return 0x5A5A
}

func (dev *fakeDevice) Write(addr uint16, value uint16) {
	dev.writes[addr] = value
}

func TestMMIODispatch(t *testing.T) {
	var mc machine.Machine

	dev := &fakeDevice{writes: make(map[uint16]uint16)}
	mc.Memory.Map(0x6000, 0x6004, dev)

	if err := mc.Reset(nil, nil); err != nil {
		t.Fatal(err)
	}

	mc.Registers[machine.IDX_A] = 0x6002

	if have := mc.Reg(machine.REG_MA); have != 0x5A5A {
		t.Errorf("MMIO read mismatch\nwant:%#06x\nhave:%#06x", 0x5A5A, have)
	}

	if len(dev.reads) != 1 || dev.reads[0] != 0x6002 {
		t.Errorf("MMIO read dispatch mismatch: %v", dev.reads)
	}

	mc.SetReg(machine.REG_MA, 0x0042)

	if dev.writes[0x6002] != 0x0042 {
		t.Errorf("MMIO write dispatch mismatch: %v", dev.writes)
	}

	// Peek and Poke bypass the device
	mc.Memory.Poke(0x6002, 0x1111)

	if have := mc.Memory.Peek(0x6002); have != 0x1111 {
		t.Errorf("Peek mismatch\nwant:%#06x\nhave:%#06x", 0x1111, have)
	}

	// addresses outside the window hit RAM
	mc.Registers[machine.IDX_A] = 0x5FFF
	mc.SetReg(machine.REG_MA, 0x2222)

	if have := mc.Memory.Peek(0x5FFF); have != 0x2222 {
		t.Errorf("RAM write mismatch\nwant:%#06x\nhave:%#06x", 0x2222, have)
	}
}

func TestDisassemble(t *testing.T) {
	rom := []uint16{
		0x8005,
		encode(machine.Instr{
			Source: machine.REG_D,
			Op:     machine.OP_ADD,
			SW:     true,
			Target: machine.REG_D,
		}),
		encode(machine.Instr{
			Source: machine.REG_D,
			Op:     machine.OP_SUB,
			SW:     true,
			Jump:   machine.JUMP_EQ,
		}),
		encode(machine.Instr{
			Source: machine.REG_NONE,
			Op:     machine.OP_AND,
			Jump:   0b111,
		}),
		0x0D00,
	}

	want := strings.Join([]string{
		"A = 5",
		"D = add, A, D",
		"sub, A, D; JEQ",
		"and, None, A; JMP",
		"# 0x0d00",
		"",
	}, "\n")

	if have := machine.Disassemble(rom, false); have != want {
		t.Errorf("Disassembly mismatch\nwant:\n%s\nhave:\n%s", want, have)
	}
}
