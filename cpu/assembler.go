// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the LS-8.
//
// Source lines have the form:
//
//	[LABEL:] MNEMONIC [operand[, operand]] ; comment
//
// Operands are registers (R0-R7, or SP for R7), numbers, character
// literals ('A'), equates, labels, or $(...) compile-time expressions.
// The directives are:
//
//	.equ NAME VALUE     ; define an equate
//	.db VALUE...        ; emit raw bytes
//	.macro NAME ARG...  ; start a macro definition
//	.endm               ; end a macro definition
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to memory addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expanding map[string]bool // Macros currently being expanded.
}

// Predefine defines a new equate or redefines an existing equate, applied
// at the start of every Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register indexes.
var regMap = map[string]byte{
	"R0": 0,
	"R1": 1,
	"R2": 2,
	"R3": 3,
	"R4": 4,
	"R5": 5,
	"R6": 6,
	"R7": 7,
	"SP": SP,
}

// opMap maps instruction mnemonics.
var opMap = map[string]CodeOp{
	"HLT":  OP_HLT,
	"LDI":  OP_LDI,
	"PRN":  OP_PRN,
	"MUL":  OP_MUL,
	"PUSH": OP_PUSH,
	"POP":  OP_POP,
}

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value byte, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber("~")
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := numberOf(word)
	if err != nil {
		return
	}

	value, err = byteOf(v64)
	if err != nil {
		return
	}

	if invert {
		value = ^value
	}

	return
}

// numberOf parses a decimal, 0x hex, 0o octal, or 0b binary number.
func numberOf(word string) (v64 int64, err error) {
	v64, err = strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// byteOf checks that a value fits in a byte, signed or unsigned.
func byteOf(v64 int64) (value byte, err error) {
	if v64 < -0x80 || v64 > 0xff {
		err = ErrValueRange
		return
	}

	value = byte(v64)
	return
}

// registerOf returns the register index named by a word.
func (asm *Assembler) registerOf(word string) (reg byte, err error) {
	reg, ok := regMap[strings.ToUpper(word)]
	if !ok {
		err = ErrParseRegister(word)
		return
	}

	return
}

// immediateOf returns the value of an immediate operand. A word that
// names a label not yet defined is returned as a link to resolve after
// the final pass.
func (asm *Assembler) immediateOf(word string) (value byte, link string, err error) {
	addr, ok := asm.Label[word]
	if ok {
		value, err = byteOf(int64(addr))
		return
	}

	value, err = asm.valueOf(word)
	if err != nil && reIdentifier.MatchString(word) {
		if _, is_reg := regMap[strings.ToUpper(word)]; !is_reg {
			link = word
			err = nil
		}
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value byte, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, _err := numberOf(str)
		if _err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, err = byteOf(st_int64)
	return
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// charEscape maps the escaped character literals.
var charEscape = map[string]byte{
	"\\": '\\',
	"n":  '\n',
	"r":  '\r',
	"t":  '\t',
	"0":  0,
}

// expandCharacters replaces 'x' literals with their decimal values.
func expandCharacters(line string) string {
	return reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] != '\\' {
			return fmt.Sprintf("%d", str[0])
		}
		ch, ok := charEscape[str[1:]]
		if !ok {
			return word
		}
		return fmt.Sprintf("%d", ch)
	})
}

// expandExpressions replaces $(...) expressions with their values.
func (asm *Assembler) expandExpressions(line string) (text string, err error) {
	text = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})

	return
}

// defineEquate handles '.equ NAME VALUE'.
func (asm *Assembler) defineEquate(args []string) (err error) {
	if len(args) != 2 {
		err = ErrEquateSyntax
		return
	}

	if _, ok := asm.Equate[args[0]]; ok {
		err = ErrEquateDuplicate
		return
	}

	asm.Equate[args[0]] = args[1]

	return
}

// defineLabels consumes leading 'LABEL:' words, and returns the rest.
func (asm *Assembler) defineLabels(words []string) (rest []string, err error) {
	rest = words
	for len(rest) > 0 {
		label, ok := strings.CutSuffix(rest[0], ":")
		if !ok {
			break
		}
		if _, dup := asm.Label[label]; dup {
			err = ErrLabelDuplicate
			return
		}
		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		rest = rest[1:]
	}

	return
}

// expandMacro assembles the body of a macro, with its arguments bound as
// equates for the duration of the expansion.
func (asm *Assembler) expandMacro(name string, args []string) (err error) {
	macro := asm.Macro[name]
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	if asm.expanding[name] {
		err = ErrMacroRecursion
		return
	}
	if asm.expanding == nil {
		asm.expanding = map[string]bool{}
	}
	asm.expanding[name] = true
	defer delete(asm.expanding, name)

	saved := maps.Clone(asm.Equate)
	defer func() { asm.Equate = saved }()

	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}

	for n, line := range macro.Lines {
		lineno := macro.LineNo + n

		// '@' makes labels unique per expansion.
		line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, lineno))

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err == nil {
			err = asm.parseWords(words, lineno)
		}
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			return
		}
	}

	return
}

// parseLine expands a source line into the words of a single opcode.
// Directives, labels, and macro invocations are handled here, and
// leave no words behind.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	line, err = asm.expandExpressions(expandCharacters(line))
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(words) == 0 {
		return
	}

	if words[0] == ".equ" {
		err = asm.defineEquate(words[1:])
		words = nil
		return
	}

	for n, word := range words {
		if equate, ok := asm.Equate[word]; ok {
			words[n] = equate
		}
	}

	words, err = asm.defineLabels(words)
	if err != nil || len(words) == 0 {
		return
	}

	if _, ok := asm.Macro[words[0]]; ok {
		err = asm.expandMacro(words[0], words[1:])
		words = nil
		return
	}

	return
}

// currentAddr gets the memory address of the next emitted byte.
func (asm *Assembler) currentAddr() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + len(last.Data)
}

// reset prepares the assembler state for a new Parse.
func (asm *Assembler) reset() {
	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	clear(asm.expanding)

	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)
}

// defineMacro handles '.macro NAME ARG...'. The body starts on the next line.
func (asm *Assembler) defineMacro(args []string, lineno int) (macro *Macro, err error) {
	if len(args) < 1 {
		err = ErrMacroSyntax
		return
	}

	if _, ok := asm.Macro[args[0]]; ok {
		err = ErrMacroDuplicate
		return
	}

	macro = &Macro{
		LineNo: lineno + 1,
	}
	if len(args) > 1 {
		macro.Args = args[1:]
	}
	asm.Macro[args[0]] = macro

	return
}

// link patches label addresses into the opcodes that reference them.
// On failure, the offending opcode is returned.
func (asm *Assembler) link() (bad *Opcode, err error) {
	for n := range asm.Opcode {
		op := &asm.Opcode[n]
		for _, index := range slices.Sorted(maps.Keys(op.Links)) {
			label := op.Links[index]
			addr, ok := asm.Label[label]
			if !ok {
				err = ErrLabelMissing(label)
			} else {
				op.Data[index], err = byteOf(int64(addr))
			}
			if err != nil {
				bad = op
				return
			}
		}
	}

	return
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.reset()

	for scanner.Scan() {
		lineno++

		text := scanner.Text()
		if asm.Verbose {
			log.Printf("%v: %v", lineno, text)
		}

		text, _, _ = strings.Cut(text, ";")
		line = strings.TrimSpace(text)

		var directive string
		if fields := strings.Fields(line); len(fields) > 0 {
			directive = fields[0]
		}

		switch {
		case directive == ".macro":
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			macro, err = asm.defineMacro(strings.Fields(line)[1:], lineno)
		case directive == ".endm":
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
		case macro != nil:
			macro.Lines = append(macro.Lines, line)
		default:
			var words []string
			words, err = asm.parseLine(line, lineno)
			if err == nil {
				err = asm.parseWords(words, lineno)
			}
		}
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	if asm.currentAddr() > MEMORY_SIZE {
		err = ErrProgramSize
		return
	}

	bad, err := asm.link()
	if err != nil {
		lineno = bad.LineNo
		line = strings.Join(bad.Words, " ")
		return
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	if len(words) == 0 {
		return
	}

	opcode := Opcode{
		LineNo: lineno,
		Addr:   asm.currentAddr(),
		Words:  slices.Clone(words),
	}

	link := func(index int, label string) {
		if opcode.Links == nil {
			opcode.Links = map[int]string{}
		}
		opcode.Links[index] = label
	}

	// .db VALUE...
	if words[0] == ".db" {
		if len(words) < 2 {
			err = ErrDataMissing
			return
		}
		for n, word := range words[1:] {
			var value byte
			var label string
			value, label, err = asm.immediateOf(word)
			if err != nil {
				return
			}
			if len(label) != 0 {
				link(n, label)
			}
			opcode.Data = append(opcode.Data, value)
		}
		asm.Opcode = append(asm.Opcode, opcode)
		return
	}

	op, ok := opMap[strings.ToUpper(words[0])]
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	args := words[1:]
	kinds := op.Args()
	if len(args) > len(kinds) {
		err = ErrOpcodeExtraArgs
		return
	}
	if len(args) < len(kinds) {
		err = ErrOpcodeValueMissing
		return
	}

	code := MakeCode(op)
	for n, kind := range kinds {
		var value byte
		switch kind {
		case ARG_REG:
			value, err = asm.registerOf(args[n])
		case ARG_IMM:
			var label string
			value, label, err = asm.immediateOf(args[n])
			if len(label) != 0 {
				link(1+n, label)
			}
		}
		if err != nil {
			return
		}
		code.Args = append(code.Args, value)
	}

	opcode.Data = code.Bytes()
	asm.Opcode = append(asm.Opcode, opcode)

	if asm.Verbose {
		log.Printf("%02x: %v", opcode.Addr, code)
	}

	return
}
