package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program []string) (prog *Program, err error) {
	asm := &Assembler{}
	prog, err = asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal(0, len(prog.Binary()))
}

func TestAssemblerPrint8(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"; print8.asm",
		"LDI R0,8",
		"PRN R0",
		"HLT",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)

	expected := []Opcode{
		{LineNo: 2, Addr: 0, Words: []string{"LDI", "R0", "8"}, Data: []byte{0b10000010, 0, 8}},
		{LineNo: 3, Addr: 3, Words: []string{"PRN", "R0"}, Data: []byte{0b01000111, 0}},
		{LineNo: 4, Addr: 5, Words: []string{"HLT"}, Data: []byte{0b00000001}},
	}
	assert.Equal(expected, prog.Opcodes)
}

func TestAssemblerMult(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"ldi r0, 8",
		"  LDI R1 , 9   ; trailing comment",
		"",
		"MUL R0,R1",
		"PRN R0",
		"HLT",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)

	expected := []byte{
		0b10000010, 0, 8,
		0b10000010, 1, 9,
		0b10100010, 0, 1,
		0b01000111, 0,
		0b00000001,
	}
	assert.Equal(expected, prog.Binary())
}

func TestAssemblerStack(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"PUSH R0",
		"POP SP",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)
	assert.Equal([]byte{0b01000101, 0, 0b01000110, 7}, prog.Binary())
}

func TestAssemblerValues(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		word  string
		value byte
	}){
		{"0", 0},
		{"255", 255},
		{"0xf4", 0xf4},
		{"0b1010", 10},
		{"0o17", 15},
		{"-1", 0xff},
		{"-128", 0x80},
		{"~0", 0xff},
		{"~0x0f", 0xf0},
		{"'A'", 65},
		{"'\\n'", 10},
		{"' '", 32},
		{"','", 44},
		{"$(2 * 3 + 1)", 7},
		{"$(0xf0 | 0x0f)", 0xff},
	}

	for _, entry := range table {
		prog, err := assemble(t, []string{"LDI R2, " + entry.word})
		if !assert.NoError(err, entry.word) {
			continue
		}
		assert.Equal([]byte{byte(OP_LDI), 2, entry.value}, prog.Binary(), entry.word)
	}
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SP_INIT", "0xf4")
	asm.Predefine("MEMORY_SIZE", "256")

	program := []string{
		".equ ACC R0",
		".equ TEN 10",
		".equ TWENTY $(TEN * 2)",
		"LDI ACC, TEN",
		"LDI R1, TWENTY",
		"LDI R2, $(SP_INIT - 4)",
		"LDI R3, $(MEMORY_SIZE - 1)",
		"LDI R4, $(LINENO)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	expected := []byte{
		byte(OP_LDI), 0, 10,
		byte(OP_LDI), 1, 20,
		byte(OP_LDI), 2, 0xf0,
		byte(OP_LDI), 3, 0xff,
		byte(OP_LDI), 4, 8,
	}
	assert.Equal(expected, prog.Binary())
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"LDI R0, Data",
		"Start: Other:",
		"LDI R1, $(Start + 1)",
		"PRN R0",
		"HLT",
		"Data:",
		".db 1 2, 3 'x' Start End",
		"End:",
	}

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	expected := []byte{
		byte(OP_LDI), 0, 9,
		byte(OP_LDI), 1, 4,
		byte(OP_PRN), 0,
		byte(OP_HLT),
		1, 2, 3, 'x', 3, 15,
	}
	assert.Equal(expected, prog.Binary())
	assert.Equal(3, asm.Label["Other"])
	assert.Equal(map[int]string{2: "Data"}, prog.Opcodes[0].Links)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".macro SHOW rn value",
		"LDI rn, value",
		"PRN rn",
		".endm",
		"SHOW R0 8",
		".equ CONST 0x10",
		"SHOW R1 CONST",
		"HLT",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)

	expected := []byte{
		byte(OP_LDI), 0, 8,
		byte(OP_PRN), 0,
		byte(OP_LDI), 1, 0x10,
		byte(OP_PRN), 1,
		byte(OP_HLT),
	}
	assert.Equal(expected, prog.Binary())
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		lineno  int
		err     error
	}){
		{"opcode", []string{"HLT", "JMP R0"}, 2, ErrOpcodeInvalid},
		{"extra", []string{"PRN R0, R1"}, 1, ErrOpcodeExtraArgs},
		{"missing", []string{"LDI R0"}, 1, ErrOpcodeValueMissing},
		{"range", []string{"LDI R0, 256"}, 1, ErrValueRange},
		{"range_neg", []string{"LDI R0, -129"}, 1, ErrValueRange},
		{"register", []string{"PRN R8"}, 1, ErrParseRegister("R8")},
		{"number", []string{"LDI R0, 12z"}, 1, ErrParseNumber("12z")},
		{"reg_as_imm", []string{"LDI R0, R1"}, 1, ErrParseNumber("R1")},
		{"equ", []string{".equ A"}, 1, ErrEquateSyntax},
		{"equ_dup", []string{".equ A 1", ".equ A 2"}, 2, ErrEquateDuplicate},
		{"label_dup", []string{"A:", "A: HLT"}, 2, ErrLabelDuplicate},
		{"label_missing", []string{"HLT", "LDI R0, Nowhere", "HLT"}, 2, ErrLabelMissing("Nowhere")},
		{"db", []string{".db"}, 1, ErrDataMissing},
		{"macro_nest", []string{".macro A", ".macro B"}, 2, ErrMacroNesting},
		{"macro_lonely", []string{".macro A", "HLT"}, 2, ErrMacroLonely},
		{"endm_lonely", []string{".endm"}, 1, ErrMacroLonelyEndm},
		{"macro_args", []string{".macro A x", "PRN x", ".endm", "A"}, 4, ErrMacroSyntax},
		{"size", []string{".macro FILL", ".db 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16", ".endm",
			"FILL", "FILL", "FILL", "FILL", "FILL", "FILL", "FILL", "FILL",
			"FILL", "FILL", "FILL", "FILL", "FILL", "FILL", "FILL", "FILL",
			"HLT"}, 20, ErrProgramSize},
	}

	for _, entry := range table {
		_, err := assemble(t, entry.program)
		assert.ErrorIs(err, entry.err, entry.name)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.name)
		}
	}
}

func TestAssemblerMacroError(t *testing.T) {
	assert := assert.New(t)

	_, err := assemble(t, []string{
		".macro BAD",
		"LDI R9, 1",
		".endm",
		"BAD",
	})

	var macro *ErrMacro
	assert.True(errors.As(err, &macro))
	assert.Equal("BAD", macro.Macro)
	assert.Equal(2, macro.Line)
	assert.ErrorIs(err, ErrParseRegister("R9"))
}

func TestAssemblerMacroRecursion(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		macro   string
		line    int
		lineno  int
	}){
		{"self", []string{
			".macro LOOP",
			"LOOP",
			".endm",
			"LOOP",
		}, "LOOP", 2, 4},
		{"mutual", []string{
			".macro PING",
			"PONG",
			".endm",
			".macro PONG",
			"PING",
			".endm",
			"HLT",
			"PING",
		}, "PING", 2, 8},
	}

	for _, entry := range table {
		_, err := assemble(t, entry.program)
		assert.ErrorIs(err, ErrMacroRecursion, entry.name)

		var macro *ErrMacro
		if assert.True(errors.As(err, &macro), entry.name) {
			assert.Equal(entry.macro, macro.Macro, entry.name)
			assert.Equal(entry.line, macro.Line, entry.name)
		}

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.name)
		}
	}

	// A macro may be used again once its expansion has finished.
	prog, err := assemble(t, []string{
		".macro SHOW rn",
		"PRN rn",
		".endm",
		".macro TWICE rn",
		"SHOW rn",
		"SHOW rn",
		".endm",
		"TWICE R0",
		"TWICE R1",
	})
	assert.NoError(err)
	assert.Equal([]byte{
		byte(OP_PRN), 0, byte(OP_PRN), 0,
		byte(OP_PRN), 1, byte(OP_PRN), 1,
	}, prog.Binary())
}
