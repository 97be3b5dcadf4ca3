// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// Opcode represents a line of assembled code with its source location and
// generated bytes.
type Opcode struct {
	LineNo int            // Source line number.
	Addr   int            // Memory address of Data[0].
	Words  []string       // Source words, after equate and macro expansion.
	Data   []byte         // Generated bytes.
	Links  map[int]string // Data indexes to patch with label addresses.
}

// Program is an assembled program listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug locates the opcode that generated the byte at addr.
func (prog *Program) Debug(addr byte) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Addr && int(addr) < op.Addr+len(op.Data) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Addr,
			}
			break
		}
	}

	return
}

// Binary returns the memory image of the program.
func (prog *Program) Binary() (bins []byte) {
	for addr, value := range prog.Bytes() {
		for len(bins) < int(addr) {
			bins = append(bins, 0)
		}
		bins = append(bins, value)
	}

	return
}

// Bytes iterates over the address and value of every generated byte.
func (prog *Program) Bytes() iter.Seq2[byte, byte] {
	return func(yield func(addr byte, value byte) bool) {
		for _, op := range prog.Opcodes {
			for n, value := range op.Data {
				if !yield(byte(op.Addr+n), value) {
					return
				}
			}
		}
	}
}

// Listing writes the program in the text image format, one binary byte
// per line, with the source of each opcode as a comment on its first
// byte.
func (prog *Program) Listing(out io.Writer) (err error) {
	for _, op := range prog.Opcodes {
		for n, value := range op.Data {
			if n == 0 {
				_, err = fmt.Fprintf(out, "%08b # %s\n", value, strings.Join(op.Words, " "))
			} else {
				_, err = fmt.Fprintf(out, "%08b\n", value)
			}
			if err != nil {
				return
			}
		}
	}

	return
}

// Disassemble builds a program listing from a memory image. Bytes that do
// not start a complete instruction are listed as .db data.
func Disassemble(data []byte) (prog *Program) {
	prog = &Program{}

	for addr := 0; addr < len(data); {
		op, err := Decode(data[addr])
		size := 1 + op.Operands()
		if err != nil || addr+size > len(data) {
			prog.Opcodes = append(prog.Opcodes, Opcode{
				Addr:  addr,
				Words: []string{".db", fmt.Sprintf("%d", data[addr])},
				Data:  []byte{data[addr]},
			})
			addr++
			continue
		}

		code := MakeCode(op, data[addr+1:addr+size]...)
		prog.Opcodes = append(prog.Opcodes, Opcode{
			Addr:  addr,
			Words: strings.Fields(strings.ReplaceAll(code.String(), ",", " ")),
			Data:  code.Bytes(),
		})
		addr += size
	}

	return
}
