// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strings"
)

// CodeOp is an instruction opcode byte.
type CodeOp byte

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_HLT  = CodeOp(0b00000001) // HLT
	OP_LDI  = CodeOp(0b10000010) // LDI
	OP_PRN  = CodeOp(0b01000111) // PRN
	OP_MUL  = CodeOp(0b10100010) // MUL
	OP_PUSH = CodeOp(0b01000101) // PUSH
	OP_POP  = CodeOp(0b01000110) // POP
)

// CodeAluOp is an ALU operation type.
type CodeAluOp int

//go:generate go tool stringer -linecomment -type=CodeAluOp
const (
	ALU_OP_ADD = CodeAluOp(0) // ADD
	ALU_OP_MUL = CodeAluOp(1) // MUL
)

// CodeArg is the kind of an instruction operand byte.
type CodeArg int

const (
	ARG_REG = CodeArg(0) // Register index, r0-r7.
	ARG_IMM = CodeArg(1) // Immediate value.
)

// codeArgs lists the operand kinds of each opcode.
var codeArgs = map[CodeOp][]CodeArg{
	OP_HLT:  nil,
	OP_LDI:  {ARG_REG, ARG_IMM},
	OP_PRN:  {ARG_REG},
	OP_MUL:  {ARG_REG, ARG_REG},
	OP_PUSH: {ARG_REG},
	OP_POP:  {ARG_REG},
}

// Decode validates an instruction byte as a known opcode.
func Decode(ir byte) (op CodeOp, err error) {
	op = CodeOp(ir)
	if _, ok := codeArgs[op]; !ok {
		err = ErrOpcodeUnknown
		return
	}

	return
}

// Operands returns the number of operand bytes that follow the opcode.
func (op CodeOp) Operands() int {
	return int(op >> 6)
}

// Args returns the operand kinds for the opcode.
func (op CodeOp) Args() []CodeArg {
	return codeArgs[op]
}

// Code is a decoded instruction: an opcode and its operand bytes.
type Code struct {
	Op   CodeOp
	Args []byte
}

// MakeCode creates an instruction from an opcode and operands.
func MakeCode(op CodeOp, args ...byte) Code {
	return Code{Op: op, Args: args}
}

// Bytes returns the memory image of the instruction.
func (code Code) Bytes() []byte {
	return append([]byte{byte(code.Op)}, code.Args...)
}

// String returns the assembly language representation of this instruction.
func (code Code) String() string {
	kinds := code.Op.Args()

	args := make([]string, len(code.Args))
	for n, arg := range code.Args {
		if n < len(kinds) && kinds[n] == ARG_REG {
			args[n] = fmt.Sprintf("R%d", arg)
		} else {
			args[n] = fmt.Sprintf("%d", arg)
		}
	}

	if len(args) == 0 {
		return code.Op.String()
	}

	return code.Op.String() + " " + strings.Join(args, ",")
}
