package rng

import "errors"

var (
	// ErrEntropyUnavailable means the entropy source could not supply seed material.
	ErrEntropyUnavailable = errors.New("rng: entropy source unavailable")
	// ErrEmptyCharset means no character class was selected.
	ErrEmptyCharset = errors.New("rng: at least one character class must be selected")
	// ErrInvalidLength means a string length below 1 was requested.
	ErrInvalidLength = errors.New("rng: length must be at least 1")
	// ErrInvalidBound means a zero sampling bound or a count outside (0, n].
	ErrInvalidBound = errors.New("rng: invalid sampling bound")
)
