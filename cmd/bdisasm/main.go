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
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/lassandro/gobric/pkg/machine"
	"github.com/lassandro/gobric/pkg/snapshot"
)

var helpvar bool
var addrvar bool
var outvar string

const usage = "bdisasm [-addrs] [-out outfile] filename"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&addrvar, "addrs", false,
		"Prefixes every line with its ROM address",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Writes the disassembly to a file instead of stdout",
	)
	flag.Parse()
}

func bdisasm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	input, err := ioutil.ReadFile(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	state, err := snapshot.DecodeVM(input)

	if err != nil {
		log.Println(err)
		return 1
	}

	listing := machine.Disassemble(state.Rom, addrvar)

	if outvar == "" {
		fmt.Print(listing)
		return 0
	}

	if err := os.WriteFile(outvar, []byte(listing), 0666); err != nil {
		log.Println(err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(bdisasm())
}
