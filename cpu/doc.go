// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package cpu implements the LS-8 microprocessor and its assembler.
//
// The CPU consists of 256 bytes of flat memory, eight 8-bit registers
// (r0-r7), a program counter (PC), and a running flag. Register r7 is, by
// convention, the stack pointer (SP) of a descending stack that starts at
// 0xF4. Nothing prevents other instructions from using r7 as a general
// purpose register.
//
// Each instruction is an opcode byte followed by zero, one, or two operand
// bytes. The top two bits of the opcode hold the operand count, and the
// program counter advances past the operands after every instruction
// except HLT. All arithmetic is 8 bits wide and wraps on overflow.
//
// The assembler translates LS-8 mnemonic source into a Program, supporting
// labels, equates, raw data, and compile-time expression evaluation.
package cpu
