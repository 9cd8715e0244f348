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
	"path/filepath"
	"strings"

	"github.com/lassandro/gobric/pkg/assembler"
	"github.com/lassandro/gobric/pkg/machine"
	"github.com/lassandro/gobric/pkg/snapshot"
)

var helpvar bool
var debugvar bool
var outvar string

const usage = "basm [-debug] [-out outfile] filename"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.bdbg'",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.Parse()
}

func basm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	var infile string
	var source []byte

	if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 {
		var err error
		source, err = ioutil.ReadAll(os.Stdin)

		if err != nil {
			log.Println(err)
			return 1
		}

		log.SetPrefix("\033[1m<stdin>:\033[0m")

		if outvar == "" {
			outvar = "out.bvm"
		}
	} else {
		if len(args) != 1 {
			log.Println(usage)
			return 1
		}

		var err error
		source, err = ioutil.ReadFile(args[0])

		if err != nil {
			log.Println(err)
			return 1
		}

		infile = args[0]
		filename := filepath.Base(infile)
		log.SetPrefix(fmt.Sprintf("\033[1m%s:\033[0m", filename))

		if outvar == "" {
			outvar = strings.ReplaceAll(
				filename, filepath.Ext(filename), ".bvm",
			)
		}
	}

	var symtable assembler.SymTable
	var symtarget *assembler.SymTable = nil

	if debugvar {
		if infile != "" {
			var err error
			if symtable.Source, err = filepath.Abs(infile); err != nil {
				log.Println(err)
				symtable.Source = ""
			}
		}
		symtable.Labels = make(map[uint16]string)
		symtable.Lines = make(map[uint16]int)
		symtarget = &symtable
	}

	image, errs := assembler.Assemble(string(source), symtarget)

	if len(errs) > 0 {
		for _, err := range errs {
			if lineErr, ok := err.(assembler.LineError); ok {
				cursor := lineErr.GetPosition()
				log.Printf("%s\n\t%s", err, cursor.Text)
			} else {
				log.Println(err)
			}
		}

		return 1
	}

	// The .bvm container carries the ROM and the mapping table; registers
	// and RAM start zeroed and are filled in at reset
	state := snapshot.VMState{
		Rom:      image.Rom,
		Mappings: image.Mappings,
		Ram:      make([]uint16, machine.RAMLen),
	}

	output, err := snapshot.EncodeVM(&state)

	if err != nil {
		log.Println(err)
		return 1
	}

	if err := os.WriteFile(outvar, output, 0666); err != nil {
		log.Println("Error writing output file")
		log.Println(err)
		return 1
	}

	if debugvar {
		filename := filepath.Dir(outvar) + "/" + strings.ReplaceAll(
			filepath.Base(outvar), filepath.Ext(outvar), ".bdbg",
		)

		if file, err := os.OpenFile(
			filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666,
		); err == nil {
			if err := gob.NewEncoder(file).Encode(symtable); err != nil {
				log.Println("Error writing symbol table")
				log.Println(err)
				return 1
			}

			file.Close()
		} else {
			log.Println("Error creating symbol table")
			log.Println(err)
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(basm())
}
