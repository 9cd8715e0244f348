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

package debugger

import (
	"github.com/lassandro/gobric/pkg/machine"
	"github.com/lassandro/gobric/pkg/uart"
)

// StopReason says why a bounded run returned.
type StopReason int

const (
	StopHalted StopReason = iota
	StopBreakpoint
	StopIterLimit
	StopError
)

func (r StopReason) String() string {
	switch r {
	case StopHalted:
		return "halted"
	case StopBreakpoint:
		return "breakpoint"
	case StopIterLimit:
		return "iteration limit"
	case StopError:
		return "error"
	}

	return "<invalid>"
}

// Debugger drives one machine: bounded runs, breakpoints, inspection and
// the UART host bridge. Everything happens on the caller's goroutine;
// bridge calls are only made between steps.
type Debugger struct {
	Machine     *machine.Machine
	Uart        *uart.Uart
	Breakpoints map[uint16]bool

	// failed latches a runtime error (for example a reserved opcode) so the
	// machine stops advancing. It is not part of any snapshot.
	failed bool
}
