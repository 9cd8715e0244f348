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
	"encoding/gob"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/lassandro/gobric/pkg/assembler"
	"github.com/lassandro/gobric/pkg/debugger"
	"github.com/lassandro/gobric/pkg/snapshot"
)

var corevar bool
var uartvar bool
var pathvar string
var itervar int
var versvar bool
var symvar string
var ttyvar bool
var listenvar string
var wsvar string

const usage = "bdb -p file.bvm [options]"
const version = "bdb (gobric) 0.3.0"

type options struct {
	maxIter  int
	uart     bool
	tty      bool
	symtable *assembler.SymTable
	bridge   *uartBridge
}

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(
		&corevar, "c", false,
		"Loads a debugger coredump (.bdb) instead of a machine state (.bvm)",
	)
	flag.BoolVar(&uartvar, "u", false, "Enables the UART")
	flag.StringVar(
		&pathvar, "p", "", "Path to the .bvm or .bdb file (required)",
	)
	flag.IntVar(
		&itervar, "m", 0xFFFF,
		"Max amount of steps for the continue command",
	)
	flag.BoolVar(&versvar, "V", false, "Prints the version and exits")
	flag.StringVar(
		&symvar, "sym", "", "Path to a .bdbg symbol table",
	)
	flag.BoolVar(
		&ttyvar, "tty", false,
		"Bridges the host terminal to the UART while continuing",
	)
	flag.StringVar(
		&listenvar, "listen", "",
		"Serves the UART to a TCP client on this address",
	)
	flag.StringVar(
		&wsvar, "ws", "",
		"Serves the UART to WebSocket clients on this address",
	)
	flag.Parse()
}

func bdb() int {
	if versvar {
		fmt.Println(version)
		return 0
	}

	if pathvar == "" {
		log.Println(usage)
		flag.PrintDefaults()
		return 1
	}

	input, err := ioutil.ReadFile(pathvar)

	if err != nil {
		log.Println(err)
		return 1
	}

	useUart := uartvar || ttyvar || listenvar != "" || wsvar != ""

	var dbg *debugger.Debugger

	if corevar {
		state, err := snapshot.DecodeDebug(input)

		if err != nil {
			log.Println(err)
			return 1
		}

		dbg, err = debugger.Restore(state, useUart)

		if err != nil {
			log.Println(err)
			return 1
		}
	} else {
		state, err := snapshot.DecodeVM(input)

		if err != nil {
			log.Println(err)
			return 1
		}

		dbg, err = debugger.New(state, nil, useUart)

		if err != nil {
			log.Println(err)
			return 1
		}
	}

	opts := &options{maxIter: itervar, uart: useUart, tty: ttyvar}

	if symvar != "" {
		file, err := os.Open(symvar)

		if err != nil {
			log.Println("Error loading symbol file")
			log.Println(err)
		} else {
			var symtable assembler.SymTable

			if err := gob.NewDecoder(file).Decode(&symtable); err == nil {
				opts.symtable = &symtable
			} else {
				log.Println("Error loading symbol file")
				log.Println(err)
			}

			file.Close()
		}
	}

	if listenvar != "" {
		opts.bridge = newUartBridge()
		go startTcpServer(listenvar, opts.bridge)
	}

	if wsvar != "" {
		if opts.bridge == nil {
			opts.bridge = newUartBridge()
		}
		go startWsServer(wsvar, opts.bridge)
	}

	return debugREPL(dbg, opts)
}

func main() {
	os.Exit(bdb())
}
