// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ezrec/ls8/emulator"
)

type debugger struct {
	emu *emulator.Emulator
	src *source

	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	brk     []byte
	watches []byte
}

func newDebugger(emu *emulator.Emulator, src *source) *debugger {
	d := &debugger{
		emu: emu,
		src: src,
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 24, 0, false).
		AddItem(d.log, 0, 1, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 2, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "b", "break", "w", "watch":
				for label := range d.src.Label {
					if strings.HasPrefix(label, arg) {
						entries = append(entries, cmd+" "+label)
					}
				}
				slices.Sort(entries)
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := d.input.GetText()
		if cmd == "" {
			return
		}
		d.input.SetText("")
		if cmd == "exit" {
			d.app.Stop()
			return
		}
		d.Command(cmd)
	})

	return d
}

// debugMode runs the interactive debugger until the user exits.
func debugMode(emu *emulator.Emulator, src *source) error {
	d := newDebugger(emu, src)

	log.SetPrefix("")
	log.SetOutput(d.log)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetPrefix("ls8: ")
	}()

	// PRN output shares the log pane.
	emu.Tape.Output = d.log

	d.Reset()

	return d.app.Run()
}

// Command executes a single debugger command line.
func (d *debugger) Command(line string) {
	defer d.Update()

	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "s", "step":
		count := 1
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				log.Printf("invalid count %q", arg)
				return
			}
			count = n
		}
		for range count {
			if done, err := d.Step(); done || err != nil {
				return
			}
		}
	case "c", "continue":
		d.Continue()
	case "b", "break":
		if arg == "" {
			d.brk = nil
			log.Print("cleared breaks")
			return
		}
		addr, ok := d.src.Resolve(arg)
		if !ok {
			log.Printf("invalid addr %q", arg)
			return
		}
		if n := slices.Index(d.brk, addr); n >= 0 {
			d.brk = slices.Delete(d.brk, n, n+1)
			log.Printf("cleared break %02x", addr)
			return
		}
		d.brk = append(d.brk, addr)
		log.Printf("set break %02x", addr)
	case "w", "watch":
		if arg == "" {
			d.watches = nil
			log.Print("cleared watches")
			return
		}
		addr, ok := d.src.Resolve(arg)
		if !ok {
			log.Printf("invalid addr %q", arg)
			return
		}
		d.watches = append(d.watches, addr)
		log.Printf("watching %02x", addr)
	case "r", "reset":
		if err := d.src.Load(d.emu); err != nil {
			log.Printf("load: %v", err)
			return
		}
		d.Reset()
	case "t", "trace":
		log.Print(d.emu.Cpu.Trace())
	default:
		log.Printf("unknown command %q", cmd)
	}
}

// Reset the machine to the start of the program.
func (d *debugger) Reset() {
	if err := d.emu.Reset(); err != nil {
		log.Printf("reset: %v", err)
	}
	d.Update()
}

// Step executes a single instruction.
func (d *debugger) Step() (done bool, err error) {
	done, err = d.emu.Tick()
	switch {
	case err != nil:
		log.Printf("%v", err)
	case done:
		log.Printf("halted after %d instructions", d.emu.Ticks())
	}

	return
}

// Continue runs until a break address, a halt, or a fault.
func (d *debugger) Continue() {
	for {
		if done, err := d.Step(); done || err != nil {
			return
		}
		if slices.Contains(d.brk, d.emu.Cpu.Pc) {
			log.Printf("break %02x", d.emu.Cpu.Pc)
			return
		}
	}
}

// Update refreshes the watch and state panes.
func (d *debugger) Update() {
	d.watch.SetText(d.watchContent())
	d.state.SetText(d.stateMsg())

	switch {
	case d.emu.Cpu.Running:
		d.state.SetTextColor(tcell.ColorBlack)
		d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	default:
		d.state.SetTextColor(tcell.ColorWhite)
		d.state.SetBackgroundColor(tcell.ColorDarkRed)
	}
}

func (d *debugger) stateMsg() string {
	emu := d.emu

	kind := "       "
	switch {
	case !emu.Cpu.Running:
		kind = "[HALT!]"
	case slices.Contains(d.brk, emu.Cpu.Pc):
		kind = "[break]"
	}

	var line string
	if lineno := emu.LineNo(); lineno != 0 {
		line = fmt.Sprintf("line %d", lineno)
	}

	return fmt.Sprintf("%02x %-12v %s %s\n%s",
		emu.Cpu.Pc, emu.Code(), kind, line, emu.Cpu.Trace())
}

func (d *debugger) watchContent() string {
	var b strings.Builder

	b.WriteString(d.emu.Cpu.String())

	for _, addr := range d.brk {
		fmt.Fprintf(&b, "\n[%02x] brk!", addr)
	}
	for _, addr := range d.watches {
		fmt.Fprintf(&b, "\n[%02x] %02x", addr, d.emu.Cpu.Read(addr))
	}

	return b.String()
}
