// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/ls8/io"
)

// Channel is an I/O channel interface.
type Channel io.Channel

var _cpu_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("%v", MEMORY_SIZE),
	"SP_INIT":     fmt.Sprintf("0x%x", SP_INIT),
}

// Cpu is the simulation context for the LS-8 processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.
	Tracing bool // Set to log a Trace() line before every instruction.

	Memory   [MEMORY_SIZE]byte    // Flat memory.
	Register [REGISTER_COUNT]byte // Register bank; Register[SP] is the stack pointer.
	Pc       byte                 // Current program counter.
	Running  bool                 // Cleared by HLT or a fault.

	Ticks int // Executed instruction counter.

	channel Channel // Output channel for PRN.
}

// NewCpu creates a new CPU in its power-on state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears memory and registers.
// - Points SP at the top of the stack.
// - Zeros the program counter and statistics counters.
// - Rewinds the output channel.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	clear(cpu.Register[:])
	cpu.Register[SP] = SP_INIT
	cpu.Pc = 0
	cpu.Running = false
	cpu.Ticks = 0

	if cpu.channel != nil {
		cpu.channel.Rewind()
	}
}

// SetChannel attaches the output channel used by PRN.
// A nil channel discards output.
func (cpu *Cpu) SetChannel(channel Channel) {
	cpu.channel = channel
}

// Read returns the byte at a memory address.
func (cpu *Cpu) Read(addr byte) byte {
	return cpu.Memory[addr]
}

// Write stores a byte at a memory address.
func (cpu *Cpu) Write(addr byte, value byte) {
	cpu.Memory[addr] = value
}

// Load copies a program image into memory starting at addr.
func (cpu *Cpu) Load(addr byte, data []byte) (err error) {
	if int(addr)+len(data) > MEMORY_SIZE {
		err = ErrProgramSize
		return
	}

	copy(cpu.Memory[addr:], data)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes at 0x%02x", len(data), addr)
	}

	return
}

// Trace returns the program counter, the next three bytes of memory,
// and the register bank as two-digit hex values.
func (cpu *Cpu) Trace() string {
	var b strings.Builder

	fmt.Fprintf(&b, "TRACE: %02X | %02X %02X %02X |",
		cpu.Pc,
		cpu.Read(cpu.Pc),
		cpu.Read(cpu.Pc+1),
		cpu.Read(cpu.Pc+2))

	for _, reg := range cpu.Register {
		fmt.Fprintf(&b, " %02X", reg)
	}

	return b.String()
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc",
		"ir",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6",
		"sp",
		"top",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%02X", cpu.Pc)
		case "ir":
			strval = fmt.Sprintf("%08b", cpu.Read(cpu.Pc))
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6":
			strval = fmt.Sprintf("%02X", cpu.Register[byte(reg[1]-'0')])
		case "sp":
			strval = fmt.Sprintf("%02X", cpu.Register[SP])
		case "top":
			if cpu.Depth() > 0 {
				strval = fmt.Sprintf("%02X", cpu.Peek())
			} else {
				strval = "--"
			}
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// FetchCode fetches and decodes the instruction at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	ir := cpu.Read(cpu.Pc)

	op, err := Decode(ir)
	if err != nil {
		err = errors.Join(ErrOpcode(ir), err)
		return
	}

	code.Op = op
	for n := range op.Operands() {
		code.Args = append(code.Args, cpu.Read(cpu.Pc+1+byte(n)))
	}

	return
}

// Tick executes a single CPU instruction cycle.
// On error the running flag is cleared and the program counter is left
// at the faulting instruction.
func (cpu *Cpu) Tick() (err error) {
	defer func() {
		if err != nil {
			cpu.Running = false
		}
	}()

	if cpu.Tracing {
		log.Print(cpu.Trace())
	}

	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(code)

	return
}

// Run sets the running flag, and ticks until HLT or a fault.
func (cpu *Cpu) Run() (err error) {
	cpu.Running = true

	for cpu.Running {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// register validates a register index operand.
func register(index byte) (reg byte, err error) {
	if index >= REGISTER_COUNT {
		err = ErrRegisterInvalid
		return
	}

	reg = index
	return
}

// Execute executes a single decoded instruction, and advances the program
// counter past it.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code.Op), err)
		}
	}()

	if cpu.Verbose {
		log.Printf("%02x: %v", cpu.Pc, code)
	}

	kinds, ok := codeArgs[code.Op]
	if !ok {
		err = ErrOpcodeUnknown
		return
	}

	if len(code.Args) != len(kinds) {
		err = ErrOpcodeArgs
		return
	}

	// Validate register operands before any state changes.
	var regs [2]byte
	for n, kind := range kinds {
		if kind != ARG_REG {
			continue
		}
		regs[n], err = register(code.Args[n])
		if err != nil {
			return
		}
	}

	switch code.Op {
	case OP_HLT:
		cpu.Running = false
	case OP_LDI:
		cpu.Register[regs[0]] = code.Args[1]
	case OP_PRN:
		if cpu.channel != nil {
			err = cpu.channel.Send(cpu.Register[regs[0]])
			if err != nil {
				err = errors.Join(ErrChannelSend, err)
				return
			}
		}
	case OP_MUL:
		cpu.Alu(ALU_OP_MUL, regs[0], regs[1])
	case OP_PUSH:
		cpu.PushRegister(regs[0])
	case OP_POP:
		cpu.PopRegister(regs[0])
	}

	cpu.Ticks += 1

	// HLT leaves the program counter on itself.
	if code.Op != OP_HLT {
		cpu.Pc += 1 + byte(code.Op.Operands())
	}

	return
}

// Alu performs the requested ALU action on two registers, storing the
// result in the first. Results wrap at 8 bits.
func (cpu *Cpu) Alu(op CodeAluOp, reg_a, reg_b byte) {
	input := cpu.Register[reg_a]
	value := cpu.Register[reg_b]

	var output byte
	switch op {
	case ALU_OP_ADD: // add
		output = input + value
	case ALU_OP_MUL: // mul
		output = input * value
	default:
		panic(f("unsupported ALU operation %v", op))
	}

	cpu.Register[reg_a] = output
}
