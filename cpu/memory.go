// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

const (
	MEMORY_SIZE    = 256  // Bytes of addressable memory.
	REGISTER_COUNT = 8    // General purpose registers, r0-r7.
	SP             = 7    // Register used as the stack pointer.
	SP_INIT        = 0xf4 // Initial stack pointer; the stack descends from here.
)
