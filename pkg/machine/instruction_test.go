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
	"testing"

	"github.com/lassandro/gobric/pkg/machine"
)

func TestDecodeImmediate(t *testing.T) {
	inst, err := machine.Decode(0x8005)

	if err != nil {
		t.Fatal(err)
	}

	if !inst.CI {
		t.Error("Expected a ci instruction")
	}

	if inst.Imm != 5 {
		t.Errorf("Immediate mismatch\nwant:%#06x\nhave:%#06x", 5, inst.Imm)
	}

	inst, err = machine.Decode(0xFFFF)

	if err != nil {
		t.Fatal(err)
	}

	if inst.Imm != 0x7FFF {
		t.Errorf(
			"Immediate mismatch\nwant:%#06x\nhave:%#06x", 0x7FFF, inst.Imm,
		)
	}
}

func TestDecodeFields(t *testing.T) {
	// D = add, A, D  (source D, op add, sw, target D)
	inst, err := machine.Decode(0x3898)

	if err != nil {
		t.Fatal(err)
	}

	if inst.CI {
		t.Error("Expected an ALU instruction")
	}

	if inst.Source != machine.REG_D {
		t.Errorf(
			"Source mismatch\nwant:%v\nhave:%v", machine.REG_D, inst.Source,
		)
	}

	if inst.Op != machine.OP_ADD {
		t.Errorf("Op mismatch\nwant:%v\nhave:%v", machine.OP_ADD, inst.Op)
	}

	if !inst.SW || inst.ZX {
		t.Errorf("Flag mismatch\nwant:sw=true zx=false\nhave:sw=%v zx=%v",
			inst.SW, inst.ZX)
	}

	if inst.Target != machine.REG_D {
		t.Errorf(
			"Target mismatch\nwant:%v\nhave:%v", machine.REG_D, inst.Target,
		)
	}

	if inst.Jump != 0 {
		t.Errorf("Jump mismatch\nwant:%#03b\nhave:%#03b", 0, inst.Jump)
	}
}

// Decode fails exactly on the reserved operation codes, and Encode inverts
// Decode everywhere else.
func TestEncodeDecodeInverse(t *testing.T) {
	for word := 0; word <= 0xFFFF; word++ {
		inst, err := machine.Decode(uint16(word))

		reserved := word&0x8000 == 0 &&
			machine.Op((word>>8)&0xF) > machine.OP_ASR

		if reserved {
			if err == nil {
				t.Fatalf("Expected decode of %#06x to fail", word)
			}

			continue
		}

		if err != nil {
			t.Fatalf("Unexpected decode failure for %#06x: %v", word, err)
		}

		back, err := machine.Encode(inst)

		if err != nil {
			t.Fatalf("Unexpected encode failure for %#06x: %v", word, err)
		}

		if back != uint16(word) {
			t.Fatalf(
				"Encode/decode mismatch\nwant:%#06x\nhave:%#06x", word, back,
			)
		}
	}
}

func TestEncodeValidation(t *testing.T) {
	cases := []machine.Instr{
		{CI: true, Imm: 0x8000},
		{Source: machine.Register(8)},
		{Target: machine.Register(8)},
		{Op: machine.Op(0b1101)},
		{Jump: 0b1000},
	}

	for _, inst := range cases {
		if _, err := machine.Encode(inst); err == nil {
			t.Errorf("Expected encode of %+v to fail", inst)
		}
	}
}

func TestRegisterNames(t *testing.T) {
	names := map[machine.Register]string{
		machine.REG_NONE: "None",
		machine.REG_A:    "A",
		machine.REG_MA:   "*A",
		machine.REG_D:    "D",
		machine.REG_E:    "E",
		machine.REG_F:    "F",
		machine.REG_G:    "G",
		machine.REG_H:    "H",
	}

	for reg, name := range names {
		if have := reg.String(); have != name {
			t.Errorf("Name mismatch\nwant:%s\nhave:%s", name, have)
		}

		if reg == machine.REG_NONE {
			continue
		}

		parsed, ok := machine.ParseRegister(name)

		if !ok || parsed != reg {
			t.Errorf("Parse mismatch for %s", name)
		}
	}

	if _, ok := machine.ParseRegister("None"); ok {
		t.Error("REG_NONE must not have a spelling")
	}
}
