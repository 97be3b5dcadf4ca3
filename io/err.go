// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Rom errors
	ErrRomSize = errors.New(f("image larger than %d bytes", ROM_SIZE))
)
