// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator wires an LS-8 CPU to its program image and output tape.
package emulator

import (
	"fmt"
	stdio "io"
	"iter"
	"maps"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/internal"
	"github.com/ezrec/ls8/io"
)

const (
	ROM_BASE = 0 // Load address of the program image.
)

var _emulator_defines = map[string]string{
	"ROM_BASE": fmt.Sprintf("%v", ROM_BASE),
}

// Emulator state. CPU + program image + output tape.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	Tracing  bool         // If set, logs a trace line before every instruction.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Program listing; when set, it replaces the Rom image.

	Rom  io.Rom  // Program image.
	Tape io.Tape // PRN output.

	MaxTicks int // Instruction limit for Run; zero is unlimited.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu: cpu.NewCpu(),
	}

	emu.Cpu.SetChannel(&emu.Tape)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Rom.Defines(),
	)
}

// LoadImage parses a text program image into Rom, and replaces the
// program listing with its disassembly.
func (emu *Emulator) LoadImage(input stdio.Reader) (err error) {
	err = emu.Rom.Parse(input)
	if err != nil {
		emu.Program = &cpu.Program{}
		return
	}

	emu.Program = cpu.Disassemble(emu.Rom.Data)

	return
}

// Reset the machine, and load the program image.
// A program listing, even an empty one, replaces the image in Rom.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Tracing = emu.Tracing

	if emu.Program != nil {
		emu.Rom.Data = emu.Program.Binary()
	}

	emu.Cpu.Reset()

	err = emu.Cpu.Load(ROM_BASE, emu.Rom.Data)
	if err != nil {
		return
	}

	emu.Cpu.Running = true

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Code returns the current instruction code.
func (emu *Emulator) Code() cpu.Code {
	code, err := emu.Cpu.FetchCode()
	if err != nil {
		return cpu.Code{}
	}

	return code
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set once the machine has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Tracing = emu.Tracing

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	if !emu.Cpu.Running {
		done = true
		return
	}

	if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks {
		emu.Cpu.Running = false
		err = ErrTickLimit
		return
	}

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = !emu.Cpu.Running

	return
}

// Run ticks the emulator until it halts or faults.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
