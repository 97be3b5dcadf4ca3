// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Command ls8 runs LS-8 program images.
package main

import (
	"errors"
	"flag"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/translate"
)

const (
	INTERACTIVE_MAX_TICKS = 1 << 16 // Instruction limit for -dev and -debug runs.
)

func main() {
	log.SetPrefix("ls8: ")
	log.SetFlags(0)

	os.Exit(ls8(os.Args[1:], os.Stdout))
}

// ls8 runs the command line, and returns the process exit code.
func ls8(args []string, stdout io.Writer) int {
	var compile string
	var save bool
	var output string
	var verbose bool
	var trace bool
	var limit int
	var dev bool
	var debug bool

	flags := flag.NewFlagSet("ls8", flag.ContinueOnError)
	flags.StringVar(&compile, "c", "", ".asm file to assemble")
	flags.BoolVar(&save, "s", false, "Save listing to output, do not execute")
	flags.StringVar(&output, "o", "-", "Tape (or listing) output")
	flags.BoolVar(&verbose, "v", false, "Verbose mode")
	flags.BoolVar(&trace, "t", false, "Trace every instruction")
	flags.IntVar(&limit, "max", 0, "Instruction limit, 0 for none")
	flags.BoolVar(&dev, "dev", false, "Developer mode (re-run when the file changes)")
	flags.BoolVar(&debug, "debug", false, "Interactive debugger")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	src := &source{}
	if len(compile) != 0 {
		if flags.NArg() != 0 {
			log.Printf("Unknown arguments: %v", flags.Args())
			return 1
		}
		src.Path = compile
		src.Compile = true
	} else {
		if flags.NArg() != 1 {
			translate.Fprintln(stdout, "Usage: ls8 filename")
			return 1
		}
		src.Path = flags.Arg(0)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Tracing = trace
	emu.MaxTicks = limit
	if (dev || debug) && limit == 0 {
		emu.MaxTicks = INTERACTIVE_MAX_TICKS
	}

	err := src.Load(emu)
	if errors.Is(err, fs.ErrNotExist) {
		translate.Fprintln(stdout, "Couldn't find file %v", src.Path)
		return 1
	}
	if err != nil {
		log.Printf("%v: %v", src.Path, err)
		return 1
	}

	ouf := stdout
	if output != "-" {
		file, err := os.Create(output)
		if err != nil {
			log.Printf("%v: %v", output, err)
			return 1
		}
		defer file.Close()
		ouf = file
	}

	if save {
		err = emu.Program.Listing(ouf)
		if err != nil {
			log.Printf("%v: %v", output, err)
			return 1
		}
		return 0
	}

	emu.Tape.Output = ouf

	switch {
	case debug:
		err = debugMode(emu, src)
	case dev:
		err = devMode(emu, src)
	default:
		err = run(emu)
	}
	if err != nil {
		log.Print(err)
		return 1
	}

	return 0
}

// run the emulator from reset until it halts.
func run(emu *emulator.Emulator) (err error) {
	err = emu.Reset()
	if err != nil {
		return
	}

	err = emu.Run()
	if err != nil && emu.Verbose {
		log.Printf("%v", emu.Cpu.String())
	}

	return
}
