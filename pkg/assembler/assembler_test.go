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

package assembler_test

import (
	"reflect"
	"testing"

	"github.com/lassandro/gobric/pkg/assembler"
	"github.com/lassandro/gobric/pkg/machine"
)

type testCase struct {
	Name     string
	Input    string
	Rom      []uint16
	Mappings []machine.Mapping
}

type failCase struct {
	Name  string
	Input string
	Error error
}

func testAssemblerSuccess(t *testing.T, test *testCase) {
	image, errs := assembler.Assemble(test.Input, nil)

	if len(errs) > 0 {
		t.Fatal(errs[0])
	}

	if !reflect.DeepEqual(image.Rom, test.Rom) {
		t.Errorf(
			"ROM mismatch\nwant:%#06x\nhave:%#06x", test.Rom, image.Rom,
		)
	}

	if !reflect.DeepEqual(image.Mappings, test.Mappings) {
		t.Errorf(
			"Mapping mismatch\nwant:%v\nhave:%v",
			test.Mappings,
			image.Mappings,
		)
	}
}

func testAssemblerFailure(t *testing.T, test *failCase) {
	image, errs := assembler.Assemble(test.Input, nil)

	if image != nil {
		t.Fatal("Expected no image on failure")
	}

	if len(errs) == 0 {
		t.Fatal("Expected assembly to fail")
	}

	want := reflect.TypeOf(test.Error)

	for _, err := range errs {
		if reflect.TypeOf(err) == want {
			return
		}
	}

	t.Fatalf("Expected a %v among %v", want, errs)
}

func TestAssemble(t *testing.T) {
	tests := []testCase{
		{
			Name:  "Immediate",
			Input: "[text]\nA = 5\n",
			Rom:   []uint16{0x8005, 0x8000},
		},
		{
			Name:  "ImmediateAdd",
			Input: "[text]\nA = 5\nD = add, A, D\n",
			Rom:   []uint16{0x8005, 0x3898, 0x8000},
		},
		{
			Name:  "BareJump",
			Input: "[text]\nJMP\n",
			Rom:   []uint16{0x0007, 0x8000},
		},
		{
			Name:  "ForwardLabel",
			Input: "[text]\nA = done\nJMP\nlabel done:\nA = 1\n",
			Rom:   []uint16{0x8002, 0x0007, 0x8001, 0x8000},
		},
		{
			Name:  "ZeroFirstOperand",
			Input: "[text]\nD = sub, 0, E\n",
			Rom:   []uint16{0x49D8, 0x8000},
		},
		{
			Name:  "UnaryWithJump",
			Input: "[text]\nlsr, D ; JEQ\n",
			Rom:   []uint16{0x3502, 0x8000},
		},
		{
			Name:  "UnaryZeroOperand",
			Input: "[text]\nD = inc, 0\n",
			Rom:   []uint16{0x0A58, 0x8000},
		},
		{
			Name:  "CommentsAndBlanks",
			Input: "# header\n[text]\n\n# comment\n  A = 1\n",
			Rom:   []uint16{0x8001, 0x8000},
		},
		{
			Name: "ConstsMapping",
			Input: "[text]\n" +
				"A = X\n" +
				"[consts 0x4000]\n" +
				"label X:\n" +
				"M = 0xBEEF\n",
			Rom:      []uint16{0xC000, 0x8000, 0xBEEF},
			Mappings: []machine.Mapping{{Rom: 2, Length: 1, Ram: 0x4000}},
		},
		{
			Name: "MacrosAndDefines",
			Input: "[macros]\n" +
				"define two 2\n" +
				"begin addtwo (reg)\n" +
				"A = two\n" +
				"reg = add, reg, A\n" +
				"end\n" +
				"[text]\n" +
				"addtwo(D)\n",
			Rom: []uint16{0x8002, 0x3818, 0x8000},
		},
		{
			Name: "DefineInConsts",
			Input: "[macros]\n" +
				"define answer 42\n" +
				"[text]\n" +
				"A = 0\n" +
				"[consts 0x100]\n" +
				"M = answer\n",
			Rom:      []uint16{0x8000, 0x8000, 42},
			Mappings: []machine.Mapping{{Rom: 2, Length: 1, Ram: 0x100}},
		},
	}

	for i := range tests {
		test := &tests[i]
		t.Run(test.Name, func(t *testing.T) {
			testAssemblerSuccess(t, test)
		})
	}
}

func TestJumpKeywords(t *testing.T) {
	masks := map[string]uint16{
		"JLT": 0b100,
		"JEQ": 0b010,
		"JGT": 0b001,
		"JLE": 0b110,
		"JGE": 0b101,
		"JNE": 0b101,
		"JMP": 0b111,
	}

	for keyword, mask := range masks {
		image, errs := assembler.Assemble(
			"[text]\nadd, D, A ; "+keyword+"\n", nil,
		)

		if len(errs) > 0 {
			t.Fatalf("%s: %v", keyword, errs[0])
		}

		want := uint16(0x3800) | mask

		if image.Rom[0] != want {
			t.Errorf(
				"Mask mismatch for %s\nwant:%#06x\nhave:%#06x",
				keyword,
				want,
				image.Rom[0],
			)
		}
	}
}

func TestAssembleFailures(t *testing.T) {
	tests := []failCase{
		{
			Name:  "ImmediateTooLarge",
			Input: "[text]\nA = 0x8000\n",
			Error: &assembler.ImmediateTooLargeError{},
		},
		{
			Name:  "DuplicateLabel",
			Input: "[text]\nlabel a:\nlabel a:\n",
			Error: &assembler.DuplicateLabelError{},
		},
		{
			Name:  "UndefinedLabel",
			Input: "[text]\nA = nowhere\n",
			Error: &assembler.UndefinedLabelError{},
		},
		{
			Name:  "MissingTextSection",
			Input: "[macros]\n",
			Error: &assembler.MissingTextSectionError{},
		},
		{
			Name:  "NameConflictReserved",
			Input: "[macros]\ndefine add 1\n[text]\nA = 1\n",
			Error: &assembler.NameConflictError{},
		},
		{
			Name:  "NameConflictRedefined",
			Input: "[macros]\ndefine x 1\ndefine x 2\n[text]\nA = 1\n",
			Error: &assembler.NameConflictError{},
		},
		{
			Name: "MacroArity",
			Input: "[macros]\n" +
				"begin pair (x)\n" +
				"A = x\n" +
				"end\n" +
				"[text]\n" +
				"pair(1, 2)\n",
			Error: &assembler.MacroArityError{},
		},
		{
			Name: "MacroRecursion",
			Input: "[macros]\n" +
				"begin one ()\n" +
				"A = 1\n" +
				"end\n" +
				"begin two ()\n" +
				"one()\n" +
				"end\n" +
				"[text]\n" +
				"two()\n",
			Error: &assembler.MacroRecursionError{},
		},
		{
			// a trailing comma hands the macro an empty argument, which
			// would substitute a bare-parameter body line into a blank
			Name: "MacroEmptyArgument",
			Input: "[macros]\n" +
				"begin f (a, b)\n" +
				"b\n" +
				"end\n" +
				"[text]\n" +
				"f(x,)\n",
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "UnknownOp",
			Input: "[text]\nD = foo, A\n",
			Error: &assembler.UnknownOpError{},
		},
		{
			Name:  "UnknownMacro",
			Input: "[text]\nfoo(1)\n",
			Error: &assembler.UnknownOpError{},
		},
		{
			Name:  "BadOperandNoAccumulator",
			Input: "[text]\nD = add, D, E\n",
			Error: &assembler.BadOperandError{},
		},
		{
			Name:  "BadOperandImmediateTarget",
			Input: "[text]\nD = 5\n",
			Error: &assembler.BadOperandError{},
		},
		{
			Name:  "BadOperandImmediateJump",
			Input: "[text]\nA = 5 ; JMP\n",
			Error: &assembler.BadOperandError{},
		},
		{
			Name:  "SyntaxLabelColon",
			Input: "[text]\nlabel broken\n",
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "SyntaxConstsJunk",
			Input: "[text]\nA = 1\n[consts 0]\nD = add, D, A\n",
			Error: &assembler.SyntaxError{},
		},
	}

	for i := range tests {
		test := &tests[i]
		t.Run(test.Name, func(t *testing.T) {
			testAssemblerFailure(t, test)
		})
	}
}

func TestErrorsCollectedPerLine(t *testing.T) {
	_, errs := assembler.Assemble(
		"[text]\nA = 0x8000\nD = add, D, E\n", nil,
	)

	if len(errs) != 2 {
		t.Fatalf("Expected 2 collected errors, have %d: %v", len(errs), errs)
	}

	first, ok := errs[0].(assembler.LineError)

	if !ok {
		t.Fatalf("Expected a positioned error, have %v", errs[0])
	}

	if first.GetPosition().Line != 2 {
		t.Errorf(
			"Line mismatch\nwant:%d\nhave:%d", 2, first.GetPosition().Line,
		)
	}
}

func TestSymTable(t *testing.T) {
	symtable := assembler.SymTable{
		Labels: make(map[uint16]string),
		Lines:  make(map[uint16]int),
	}

	_, errs := assembler.Assemble(
		"[text]\nA = done\nJMP\nlabel done:\nA = 1\n", &symtable,
	)

	if len(errs) > 0 {
		t.Fatal(errs[0])
	}

	if symtable.Labels[2] != "done" {
		t.Errorf(
			"Label mismatch\nwant:%s\nhave:%s", "done", symtable.Labels[2],
		)
	}

	wantLines := map[uint16]int{0: 2, 1: 3, 2: 5}

	for addr, want := range wantLines {
		if have := symtable.Lines[addr]; have != want {
			t.Errorf(
				"Line mismatch for %#06x\nwant:%d\nhave:%d", addr, want, have,
			)
		}
	}
}
