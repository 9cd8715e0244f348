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
	"github.com/lassandro/gobric/pkg/snapshot"
	"github.com/lassandro/gobric/pkg/uart"
)

// New builds a debugger around a machine restored from st. When useUart is
// set a UART is attached to the MMIO window before the state loads.
func New(st *snapshot.VMState, breakpoints []uint16, useUart bool) (*Debugger, error) {
	dbg := &Debugger{
		Machine:     &machine.Machine{},
		Breakpoints: make(map[uint16]bool),
	}

	for _, addr := range breakpoints {
		dbg.Breakpoints[addr] = true
	}

	if useUart {
		dbg.Uart = uart.New()
		dbg.Uart.Attach(&dbg.Machine.Memory)
	}

	if err := restore(dbg.Machine, st); err != nil {
		return nil, err
	}

	return dbg, nil
}

// Restore builds a debugger from a saved debugging session.
func Restore(st *snapshot.DebugState, useUart bool) (*Debugger, error) {
	return New(&st.VM, st.Breakpoints, useUart)
}

func restore(mc *machine.Machine, st *snapshot.VMState) error {
	// Mappings apply over the snapshot RAM, like reset over a fresh image
	if err := mc.Memory.Load(st.Rom, st.Mappings, st.Ram); err != nil {
		return err
	}

	mc.PC = st.PC
	mc.Registers = st.Regs

	return nil
}

// Save captures the debugging session: the breakpoint set plus the full
// machine state. UART FIFO contents are not represented in the format.
func (dbg *Debugger) Save() *snapshot.DebugState {
	breakpoints := make([]uint16, 0, len(dbg.Breakpoints))

	for addr := range dbg.Breakpoints {
		breakpoints = append(breakpoints, addr)
	}

	return &snapshot.DebugState{
		Breakpoints: breakpoints,
		VM: snapshot.VMState{
			PC:       dbg.Machine.PC,
			Regs:     dbg.Machine.Registers,
			Mappings: dbg.Machine.Memory.Mappings(),
			Rom:      dbg.Machine.Memory.Rom(),
			Ram:      dbg.Machine.Memory.RamRegion(0, machine.RAMLen),
		},
	}
}

// Halted reports whether the machine ran off its ROM or failed.
func (dbg *Debugger) Halted() bool {
	return dbg.failed || dbg.Machine.Halted()
}

// Step executes a single instruction. A runtime error is returned and
// latches the halted state.
func (dbg *Debugger) Step() error {
	if dbg.Halted() {
		return nil
	}

	if err := dbg.Machine.Step(); err != nil {
		dbg.failed = true
		return err
	}

	return nil
}

// Run steps the machine up to maxIter times, stopping early on a halt, a
// runtime error, or when the program counter lands on a breakpoint (checked
// before the next fetch, so at least one instruction executes).
func (dbg *Debugger) Run(maxIter int) (StopReason, error) {
	if dbg.Halted() {
		return StopHalted, nil
	}

	for i := 0; i < maxIter; i++ {
		if err := dbg.Step(); err != nil {
			return StopError, err
		}

		if dbg.Halted() {
			return StopHalted, nil
		}

		if dbg.Breakpoints[dbg.Machine.PC] {
			return StopBreakpoint, nil
		}
	}

	return StopIterLimit, nil
}

// AddBreakpoint registers a ROM address; duplicates are ignored.
func (dbg *Debugger) AddBreakpoint(addr uint16) {
	dbg.Breakpoints[addr] = true
}

// RemoveBreakpoint drops a ROM address, reporting whether it was set.
func (dbg *Debugger) RemoveBreakpoint(addr uint16) bool {
	if !dbg.Breakpoints[addr] {
		return false
	}

	delete(dbg.Breakpoints, addr)
	return true
}

// FeedUart appends host bytes to the UART input FIFO.
func (dbg *Debugger) FeedUart(p []byte) {
	if dbg.Uart != nil {
		dbg.Uart.FeedIn(p)
	}
}

// DrainUart empties the UART output FIFO.
func (dbg *Debugger) DrainUart() []byte {
	if dbg.Uart == nil {
		return nil
	}

	return dbg.Uart.DrainOut()
}

// InspectReg reads a register without side effects: *A is resolved against
// raw RAM so inspection never consumes device FIFOs.
func (dbg *Debugger) InspectReg(reg machine.Register) uint16 {
	if reg == machine.REG_MA {
		return dbg.Machine.Memory.Peek(dbg.Machine.Registers[machine.IDX_A])
	}

	return dbg.Machine.Reg(reg)
}

// InspectRam dumps RAM words without MMIO dispatch, clamped to the end of
// RAM.
func (dbg *Debugger) InspectRam(from uint16, length int) []uint16 {
	return dbg.Machine.Memory.RamRegion(from, length)
}

// InspectRom dumps ROM words, clamped to the end of the image.
func (dbg *Debugger) InspectRom(from uint16, length int) []uint16 {
	return dbg.Machine.Memory.RomRegion(from, length)
}

// SetMemory writes RAM words without MMIO dispatch.
func (dbg *Debugger) SetMemory(from uint16, values []uint16) error {
	if int(from)+len(values) > machine.RAMLen {
		return &machine.AddressError{
			Space:  "RAM",
			Addr:   from,
			Length: machine.RAMLen,
		}
	}

	for i, value := range values {
		dbg.Machine.Memory.Poke(from+uint16(i), value)
	}

	return nil
}

// Rom exposes the whole ROM image for disassembly.
func (dbg *Debugger) Rom() []uint16 {
	return dbg.Machine.Memory.Rom()
}

func (dbg *Debugger) PC() uint16 {
	return dbg.Machine.PC
}

func (dbg *Debugger) SetPC(addr uint16) {
	dbg.Machine.PC = addr
}
