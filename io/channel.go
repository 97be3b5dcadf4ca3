// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package io provides the peripheral I/O for the LS-8 emulator: the program
// image loader (Rom) and the output channel written by PRN (Tape).
package io

// Channel defines the interface for output channels attached to the CPU.
type Channel interface {
	// Rewind resets the channel to its initial state.
	Rewind()
	// Send writes a single byte value to the channel.
	Send(value byte) error
}
