// internal/rng/keystream.go
package rng

import (
	"errors"
	"io"

	"golang.org/x/crypto/chacha20"
)

const (
	// KeySize is the length in bytes of the keystream key.
	KeySize = chacha20.KeySize
	// NonceSize is the length in bytes of the keystream nonce.
	NonceSize = chacha20.NonceSize
	// BlockSize is the number of bytes produced by one block transform.
	BlockSize = 64

	// Rounds is the number of ARX rounds per block (10 column/diagonal pairs).
	// chacha20.Cipher is fixed at this count.
	Rounds = 20
)

var errWiped = errors.New("rng: keystream wiped")

// Keystream is a ChaCha20 keystream generator. It is not safe for concurrent
// use; each generation call owns its own instance.
type Keystream struct {
	key    [KeySize]byte
	nonce  [NonceSize]byte
	cipher *chacha20.Cipher
	block  uint32 // counter of the next block to generate
	zero   [BlockSize]byte
	buf    [BlockSize]byte
	cursor int // bytes of buf already consumed, always in [0, BlockSize]
}

// NewKeystream seeds a Keystream with a fresh key and nonce read from src.
func NewKeystream(src io.Reader) (*Keystream, error) {
	key, nonce, err := readSeed(src)
	if err != nil {
		return nil, err
	}
	ks := NewKeystreamWithKey(key, nonce)
	clear(key[:])
	clear(nonce[:])
	return ks, nil
}

// NewKeystreamWithKey builds a Keystream from caller-supplied key material.
// Two instances built from the same key and nonce produce identical output.
func NewKeystreamWithKey(key [KeySize]byte, nonce [NonceSize]byte) *Keystream {
	ks := &Keystream{key: key, nonce: nonce, cursor: BlockSize}
	ks.reset()
	return ks
}

// reset starts the cipher at block 0.
func (ks *Keystream) reset() {
	c, err := chacha20.NewUnauthenticatedCipher(ks.key[:], ks.nonce[:])
	if err != nil {
		// key and nonce are fixed-size arrays of the sizes chacha20 expects.
		panic(err)
	}
	ks.cipher = c
	ks.block = 0
}

// Read fills buf with keystream bytes. It fails only after Wipe.
func (ks *Keystream) Read(buf []byte) (int, error) {
	if ks.cipher == nil {
		return 0, errWiped
	}
	n := 0
	for n < len(buf) {
		if ks.cursor == BlockSize {
			ks.refill()
		}
		c := copy(buf[n:], ks.buf[ks.cursor:])
		ks.cursor += c
		n += c
	}
	return n, nil
}

// Wipe zeroes the key material and any buffered output and drops the cipher.
// A wiped Keystream cannot be read from.
func (ks *Keystream) Wipe() {
	clear(ks.key[:])
	clear(ks.nonce[:])
	clear(ks.buf[:])
	ks.cipher = nil
	ks.block = 0
	ks.cursor = BlockSize
}

// refill stores the next keystream block in buf and advances the block
// counter. chacha20.Cipher refuses to run past counter 2^32-1, so the wrap
// back to block 0 restarts the cipher.
func (ks *Keystream) refill() {
	ks.cipher.XORKeyStream(ks.buf[:], ks.zero[:])
	ks.block++
	if ks.block == 0 {
		ks.reset()
	}
	ks.cursor = 0
}
