// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"fmt"
	"io"
)

// Tape provides the sequential output written by PRN. Each value is
// written to Output as an unsigned decimal number on its own line.
type Tape struct {
	Output io.Writer // Destination; nil discards output.

	Count int // Values sent since the last Rewind.
}

var _ Channel = (*Tape)(nil)

// Rewind resets the sent value counter. The output stream itself cannot
// be rewound.
func (tc *Tape) Rewind() {
	tc.Count = 0
}

// Send writes a value to the output stream.
func (tc *Tape) Send(value byte) (err error) {
	tc.Count++

	if tc.Output == nil {
		return
	}

	_, err = fmt.Fprintf(tc.Output, "%d\n", value)

	return
}
