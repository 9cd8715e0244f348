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

package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lassandro/gobric/pkg/debugger"
	"github.com/lassandro/gobric/pkg/encoding"
	"github.com/lassandro/gobric/pkg/machine"
	"github.com/lassandro/gobric/pkg/snapshot"
)

// debugREPL is the operator loop: one command per line, the machine only
// advances inside `c` and `s`. Returns the process exit code.
func debugREPL(dbg *debugger.Debugger, opts *options) int {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if out := dbg.DrainUart(); len(out) > 0 {
			fmt.Printf("uart>> %q\n", out)
		}

		fmt.Print("bdb> ")

		if !scanner.Scan() {
			fmt.Println()
			return 0
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			continue
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "q":
			return 0

		case "c":
			reason, err := runBridged(dbg, opts)

			if err != nil {
				fmt.Printf("vm error: %v\n", err)
			}

			switch reason {
			case debugger.StopBreakpoint:
				fmt.Printf("hit breakpoint at %#06x\n", dbg.PC())
			case debugger.StopHalted:
				fmt.Println("execution halted")
			case debugger.StopIterLimit:
				fmt.Printf("stopped after %d steps\n", opts.maxIter)
			}

		case "s":
			if err := dbg.Step(); err != nil {
				fmt.Printf("vm error: %v\n", err)
			}

		case "dis":
			fmt.Print(machine.Disassemble(dbg.Rom(), true))

		case "i":
			debugInspect(dbg, args)

		case "b", "rb":
			debugBreak(dbg, cmd, args)

		case "u":
			if !opts.uart {
				fmt.Println("UART not activated")
				continue
			}

			debugUart(dbg, scanner)

		case "w":
			debugWrite(dbg, args)

		case "labels":
			debugLabels(opts)

		default:
			fmt.Printf("unknown command '%s'\n", cmd)
		}
	}
}

// runBridged is `c` with the UART bridges pumped between bounded slices of
// steps, so host bytes flow while the machine runs but never during an
// instruction.
func runBridged(dbg *debugger.Debugger, opts *options) (debugger.StopReason, error) {
	if opts.bridge == nil && !opts.tty {
		return dbg.Run(opts.maxIter)
	}

	if opts.tty {
		enterRawTerm()
		defer exitRawTerm()
	}

	const slice = 256
	remaining := opts.maxIter

	for remaining > 0 {
		pumpBridges(dbg, opts)

		bound := slice
		if bound > remaining {
			bound = remaining
		}

		reason, err := dbg.Run(bound)
		remaining -= bound

		if reason != debugger.StopIterLimit || err != nil {
			pumpBridges(dbg, opts)
			return reason, err
		}
	}

	pumpBridges(dbg, opts)
	return debugger.StopIterLimit, nil
}

func pumpBridges(dbg *debugger.Debugger, opts *options) {
	if opts.tty {
		// raw mode reads with VMIN and VTIME zero return immediately
		var buf [64]byte
		if n, _ := os.Stdin.Read(buf[:]); n > 0 {
			dbg.FeedUart(buf[:n])
		}
	}

	if opts.bridge != nil {
		opts.bridge.pump(dbg)
	}

	if out := dbg.DrainUart(); len(out) > 0 {
		if opts.tty {
			os.Stdout.Write(out)
		}

		if opts.bridge != nil {
			opts.bridge.send(out)
		}
	}
}

// debugUart is the interactive capture mode: each line feeds the input FIFO
// (including the newline) until `quit_uart`; pending output is shown on
// exit.
func debugUart(dbg *debugger.Debugger, scanner *bufio.Scanner) {
	fmt.Println("capturing uart input... enter `quit_uart` to leave")

	for {
		fmt.Print("uart> ")

		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if line == "quit_uart" {
			break
		}

		dbg.FeedUart(append([]byte(line), '\n'))
	}

	if out := dbg.DrainUart(); len(out) > 0 {
		fmt.Printf("uart>> %q\n", out)
	}
}

func debugInspect(dbg *debugger.Debugger, args []string) {
	if len(args) == 0 {
		fmt.Println("i [reg|mem|rom|ci|pc]")
		return
	}

	switch args[0] {
	case "reg":
		if len(args) != 2 {
			fmt.Println("i reg [register]")
			return
		}

		reg, ok := machine.ParseRegister(args[1])

		if !ok {
			fmt.Println("invalid register name")
			return
		}

		fmt.Printf("%s = %#06x\n", args[1], dbg.InspectReg(reg))

	case "mem", "rom":
		if len(args) != 3 {
			fmt.Printf("i %s [base] [length]\n", args[0])
			return
		}

		base, err := encoding.DecodeNumber(args[1])

		if err != nil {
			fmt.Println("unable to parse base address")
			return
		}

		length, err := encoding.DecodeNumber(args[2])

		if err != nil {
			fmt.Println("unable to parse length")
			return
		}

		var words []uint16

		if args[0] == "mem" {
			words = dbg.InspectRam(base, int(length))
		} else {
			words = dbg.InspectRom(base, int(length))
		}

		printWords(base, words)

	case "ci":
		words := dbg.InspectRom(dbg.PC(), 1)

		if len(words) == 0 {
			fmt.Println("PC points outside of valid ROM range")
			return
		}

		var sb strings.Builder

		if err := machine.DisassembleInst(words[0], &sb); err != nil {
			fmt.Println("unable to decode instruction")
			return
		}

		fmt.Println(sb.String())

	case "pc":
		fmt.Printf("PC = %#06x\n", dbg.PC())

	default:
		fmt.Printf("unknown inspection '%s'\n", args[0])
	}
}

func debugBreak(dbg *debugger.Debugger, cmd string, args []string) {
	if len(args) != 1 {
		fmt.Printf("%s [address]\n", cmd)
		return
	}

	addr, err := encoding.DecodeNumber(args[0])

	if err != nil {
		fmt.Println("unable to parse breakpoint address")
		return
	}

	if cmd == "b" {
		dbg.AddBreakpoint(addr)
		fmt.Printf("registered new breakpoint at %#06x\n", addr)
	} else {
		if dbg.RemoveBreakpoint(addr) {
			fmt.Printf("removed breakpoint at %#06x\n", addr)
		} else {
			fmt.Println("that breakpoint does not exist")
		}
	}
}

func debugWrite(dbg *debugger.Debugger, args []string) {
	if len(args) != 1 {
		fmt.Println("w [path]")
		return
	}

	output, err := snapshot.EncodeDebug(dbg.Save())

	if err != nil {
		fmt.Printf("unable to serialize: %v\n", err)
		return
	}

	if err := os.WriteFile(args[0], output, 0666); err != nil {
		fmt.Printf("unable to write coredump: %v\n", err)
		return
	}

	fmt.Printf("wrote coredump to %s\n", args[0])
}

func debugLabels(opts *options) {
	if opts.symtable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	keys := make([]uint16, 0, len(opts.symtable.Labels))
	for addr := range opts.symtable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		fmt.Printf("[%#06x] %s\n", addr, opts.symtable.Labels[addr])
	}
}

func printWords(start uint16, words []uint16) {
	for i, value := range words {
		if i%16 == 0 {
			if i > 0 {
				fmt.Println()
			}

			fmt.Printf("%#06x\t", start+uint16(i))
		}

		fmt.Printf("%#06x ", value)
	}

	fmt.Println()
}
