// internal/rng/entropy.go
package rng

import (
	"crypto/rand"
	"fmt"
	"io"
)

// DefaultEntropy is the operating system entropy source.
var DefaultEntropy io.Reader = rand.Reader

// readSeed draws a fresh key and nonce from src. A short or failed read is
// reported as ErrEntropyUnavailable and is not retried.
func readSeed(src io.Reader) (key [KeySize]byte, nonce [NonceSize]byte, err error) {
	if src == nil {
		src = DefaultEntropy
	}
	if _, err = io.ReadFull(src, key[:]); err != nil {
		return key, nonce, fmt.Errorf("%w: read key: %v", ErrEntropyUnavailable, err)
	}
	if _, err = io.ReadFull(src, nonce[:]); err != nil {
		clear(key[:])
		return key, nonce, fmt.Errorf("%w: read nonce: %v", ErrEntropyUnavailable, err)
	}
	return key, nonce, nil
}
