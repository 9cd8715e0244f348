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

import (
	"fmt"

	"github.com/lassandro/gobric/pkg/machine"
)

// Cursor locates a diagnostic in the source text. Text is the offending
// line, trimmed, for rendering alongside the message.
type Cursor struct {
	Line int
	Text string
}

// Image is the assembler output: the ROM words and the ROM-to-RAM mappings
// the machine applies at reset.
type Image struct {
	Rom      []uint16
	Mappings []machine.Mapping
}

// SymTable maps assembled addresses back to the source, for debuggers.
// Labels bound in a [consts] section carry RAM addresses, all others ROM
// addresses.
type SymTable struct {
	Source string
	Labels map[uint16]string
	Lines  map[uint16]int
}

// LineError is implemented by every assembler error that can point at a
// source line.
type LineError interface {
	error
	GetPosition() Cursor
}

type SyntaxError struct {
	Position Cursor
	Detail   string
}

func (err *SyntaxError) GetPosition() Cursor {
	return err.Position
}

func (err *SyntaxError) Error() string {
	return fmt.Sprintf("%02d: %s", err.Position.Line, err.Detail)
}

type UnknownOpError struct {
	Position Cursor
	Received string
}

func (err *UnknownOpError) GetPosition() Cursor {
	return err.Position
}

func (err *UnknownOpError) Error() string {
	return fmt.Sprintf(
		"%02d: Unknown operation '%s'", err.Position.Line, err.Received,
	)
}

type BadOperandError struct {
	Position Cursor
	Detail   string
}

func (err *BadOperandError) GetPosition() Cursor {
	return err.Position
}

func (err *BadOperandError) Error() string {
	return fmt.Sprintf("%02d: Bad operand: %s", err.Position.Line, err.Detail)
}

type ImmediateTooLargeError struct {
	Position Cursor
	Received uint32
}

func (err *ImmediateTooLargeError) GetPosition() Cursor {
	return err.Position
}

func (err *ImmediateTooLargeError) Error() string {
	return fmt.Sprintf(
		"%02d: Immediate exceeds allowed size\n\twant:<=%#06x\n\thave:%#06x",
		err.Position.Line,
		0x7FFF,
		err.Received,
	)
}

type DuplicateLabelError struct {
	Position Cursor
	Received string
}

func (err *DuplicateLabelError) GetPosition() Cursor {
	return err.Position
}

func (err *DuplicateLabelError) Error() string {
	return fmt.Sprintf(
		"%02d: Redeclaration of label '%s'", err.Position.Line, err.Received,
	)
}

type UndefinedLabelError struct {
	Position Cursor
	Received string
}

func (err *UndefinedLabelError) GetPosition() Cursor {
	return err.Position
}

func (err *UndefinedLabelError) Error() string {
	return fmt.Sprintf(
		"%02d: Unknown label '%s'", err.Position.Line, err.Received,
	)
}

type NameConflictError struct {
	Position Cursor
	Received string
}

func (err *NameConflictError) GetPosition() Cursor {
	return err.Position
}

func (err *NameConflictError) Error() string {
	return fmt.Sprintf(
		"%02d: The name '%s' is already in use",
		err.Position.Line,
		err.Received,
	)
}

type MacroArityError struct {
	Position Cursor
	Macro    string
	Required int
	Received int
}

func (err *MacroArityError) GetPosition() Cursor {
	return err.Position
}

func (err *MacroArityError) Error() string {
	return fmt.Sprintf(
		"%02d: Wrong number of arguments for macro '%s'\nwant:%d\nhave:%d",
		err.Position.Line,
		err.Macro,
		err.Required,
		err.Received,
	)
}

type MacroRecursionError struct {
	Position Cursor
	Macro    string
}

func (err *MacroRecursionError) GetPosition() Cursor {
	return err.Position
}

func (err *MacroRecursionError) Error() string {
	return fmt.Sprintf(
		"%02d: Macro bodies may not invoke macros ('%s')",
		err.Position.Line,
		err.Macro,
	)
}

type MissingTextSectionError struct{}

func (err *MissingTextSectionError) Error() string {
	return "No [text] section in input"
}
