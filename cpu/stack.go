// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

// Push decrements SP, then stores value at the new top of stack.
// This is the value-level helper; the PUSH opcode goes through PushRegister.
func (cpu *Cpu) Push(value byte) {
	cpu.Register[SP]--
	cpu.Write(cpu.Register[SP], value)
}

// Pop reads the top of stack, then increments SP.
// This is the value-level helper; the POP opcode goes through PopRegister.
func (cpu *Cpu) Pop() (value byte) {
	value = cpu.Peek()
	cpu.Register[SP]++
	return
}

// Peek returns the top of stack without moving SP.
func (cpu *Cpu) Peek() byte {
	return cpu.Read(cpu.Register[SP])
}

// Depth returns the number of bytes pushed below SP_INIT.
// The result is meaningless once r7 has been used as a general register.
func (cpu *Cpu) Depth() int {
	return int(SP_INIT) - int(cpu.Register[SP])
}

// PushRegister decrements SP, then stores a register at the new top of
// stack. PUSH r7 stores the decremented stack pointer.
func (cpu *Cpu) PushRegister(reg byte) {
	cpu.Register[SP]--
	cpu.Write(cpu.Register[SP], cpu.Register[reg])
}

// PopRegister loads a register from the top of stack, then increments SP.
// POP r7 leaves SP one past the popped value.
func (cpu *Cpu) PopRegister(reg byte) {
	cpu.Register[reg] = cpu.Peek()
	cpu.Register[SP]++
}
