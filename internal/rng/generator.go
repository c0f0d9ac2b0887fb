package rng

import (
	"fmt"
	"io"
	"strings"
)

// Character classes, concatenated in this order when enabled.
const (
	Digits    = "0123456789"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Special   = "!@#$%^&*-_=+~><?/"
)

// ClassSelection chooses which character classes make up the charset.
type ClassSelection struct {
	Digits    bool
	Lowercase bool
	Uppercase bool
	Special   bool
}

// Empty reports whether no class is selected.
func (s ClassSelection) Empty() bool {
	return !(s.Digits || s.Lowercase || s.Uppercase || s.Special)
}

// Charset returns the enabled classes concatenated in fixed order
// (digits, lowercase, uppercase, special).
func (s ClassSelection) Charset() (string, error) {
	if s.Empty() {
		return "", ErrEmptyCharset
	}
	var sb strings.Builder
	if s.Digits {
		sb.WriteString(Digits)
	}
	if s.Lowercase {
		sb.WriteString(Lowercase)
	}
	if s.Uppercase {
		sb.WriteString(Uppercase)
	}
	if s.Special {
		sb.WriteString(Special)
	}
	return sb.String(), nil
}

// Engine runs generation calls. Every call seeds a fresh keystream from the
// entropy source and wipes it before returning, so an Engine holds no
// generator state between calls and is safe for concurrent use.
type Engine struct {
	entropy io.Reader
}

// NewEngine returns an Engine drawing seeds from entropy, or from the
// operating system when entropy is nil.
func NewEngine(entropy io.Reader) *Engine {
	if entropy == nil {
		entropy = DefaultEntropy
	}
	return &Engine{entropy: entropy}
}

// withSampler seeds a keystream, hands a sampler over it to fn and wipes the
// keystream afterwards.
func (e *Engine) withSampler(fn func(*Sampler) error) error {
	ks, err := NewKeystream(e.entropy)
	if err != nil {
		return err
	}
	defer ks.Wipe()
	return fn(NewSampler(ks))
}

// GenerateString returns length characters drawn independently, with
// replacement, from the charset of sel. A nil e seeds from the operating system.
func GenerateString(e *Engine, sel ClassSelection, length int) (string, error) {
	if e == nil {
		e = NewEngine(nil)
	}
	if length < 1 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	charset, err := sel.Charset()
	if err != nil {
		return "", err
	}

	out := make([]byte, length)
	err = e.withSampler(func(s *Sampler) error {
		for i := range out {
			idx, err := s.Intn(len(charset))
			if err != nil {
				return err
			}
			out[i] = charset[idx]
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GenerateChoice returns count items of items, no source position used twice.
// The result order is random and unrelated to the input order. A nil e seeds
// from the operating system.
func GenerateChoice[T any](e *Engine, items []T, count int) ([]T, error) {
	if e == nil {
		e = NewEngine(nil)
	}
	if count <= 0 || count > len(items) {
		return nil, fmt.Errorf("%w: count %d not in (0, %d]", ErrInvalidBound, count, len(items))
	}

	var picked []T
	err := e.withSampler(func(s *Sampler) error {
		idx, err := s.SampleIndices(len(items), count)
		if err != nil {
			return err
		}
		picked = make([]T, len(idx))
		for i, j := range idx {
			picked[i] = items[j]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return picked, nil
}
