// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"maps"
	"strconv"
	"strings"
)

const (
	ROM_SIZE   = 256 // Maximum image size.
	ROM_DIGITS = 8   // Binary digits per image line.
)

// Rom holds a program image parsed from its text representation.
//
// The text format has one byte per line, written as exactly eight binary
// digits. A '#' starts a comment that runs to the end of the line, and
// surrounding whitespace is ignored. Lines that do not hold a byte after
// comment stripping are skipped.
type Rom struct {
	Data []byte
}

// Defines returns an iter of defines for the channel.
func (rc *Rom) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"ROM_SIZE": fmt.Sprintf("%v", ROM_SIZE),
	})
}

// parseByte parses a single image line.
func parseByte(line string) (value byte, ok bool) {
	text, _, _ := strings.Cut(line, "#")
	text = strings.TrimSpace(text)
	if len(text) != ROM_DIGITS {
		return
	}

	v64, err := strconv.ParseUint(text, 2, 8)
	if err != nil {
		return
	}

	return byte(v64), true
}

// Parse replaces the image data with the bytes read from input.
func (rc *Rom) Parse(input io.Reader) (err error) {
	scanner := bufio.NewScanner(input)

	rc.Data = rc.Data[:0]
	for scanner.Scan() {
		value, ok := parseByte(scanner.Text())
		if !ok {
			continue
		}
		if len(rc.Data) == ROM_SIZE {
			err = ErrRomSize
			return
		}
		rc.Data = append(rc.Data, value)
	}

	err = scanner.Err()

	return
}
