// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"os"
	"strconv"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
)

// source is the file a program is loaded from.
type source struct {
	Path    string         // Image or assembler source file.
	Compile bool           // Set if Path is assembler source.
	Label   map[string]int // Labels of the last assembled source.
}

// Load reads the source into the emulator, replacing its program.
// Images are disassembled so that listings and the debugger can show them.
func (src *source) Load(emu *emulator.Emulator) (err error) {
	inf, err := os.Open(src.Path)
	if err != nil {
		return
	}
	defer inf.Close()

	if src.Compile {
		asm := &cpu.Assembler{Verbose: emu.Verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}

		var prog *cpu.Program
		prog, err = asm.Parse(inf)
		if err != nil {
			return
		}
		emu.Program = prog
		src.Label = asm.Label
		return
	}

	src.Label = nil
	err = emu.LoadImage(inf)

	return
}

// Resolve a label or number to a memory address.
func (src *source) Resolve(word string) (addr byte, ok bool) {
	if value, found := src.Label[word]; found && value < cpu.MEMORY_SIZE {
		return byte(value), true
	}

	value, err := strconv.ParseUint(word, 0, 8)
	if err != nil {
		return
	}

	return byte(value), true
}
