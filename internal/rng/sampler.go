// internal/rng/sampler.go

package rng

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Sampler turns keystream bytes into uniformly distributed integers.
type Sampler struct {
	src io.Reader
	buf [8]byte
}

// NewSampler wraps a keystream (or any byte source that never fails, such
// as *Keystream).
func NewSampler(src io.Reader) *Sampler {
	return &Sampler{src: src}
}

// Uint64n returns an integer uniform over [0, max).
//
// Draws falling at or above the largest multiple of max that fits in 64 bits
// are rejected and redrawn, so the result carries no modulo bias.
func (s *Sampler) Uint64n(max uint64) (uint64, error) {
	if max == 0 {
		return 0, fmt.Errorf("%w: max must be > 0", ErrInvalidBound)
	}
	limit := (math.MaxUint64 / max) * max
	for {
		if _, err := io.ReadFull(s.src, s.buf[:]); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint64(s.buf[:])
		if v < limit {
			return v % max, nil
		}
	}
}

// Intn is Uint64n for int bounds.
func (s *Sampler) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: n must be > 0, got %d", ErrInvalidBound, n)
	}
	v, err := s.Uint64n(uint64(n))
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// SampleIndices picks count distinct positions from [0, n), every subset of
// size count being equally likely. It runs a partial Fisher-Yates shuffle:
// position i is swapped with a uniformly chosen position in [i, n), and the
// first count slots are returned. The order of the result is random.
func (s *Sampler) SampleIndices(n, count int) ([]int, error) {
	if count <= 0 || count > n {
		return nil, fmt.Errorf("%w: count %d not in (0, %d]", ErrInvalidBound, count, n)
	}

	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < count; i++ {
		j, err := s.Intn(n - i)
		if err != nil {
			return nil, err
		}
		j += i
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count:count], nil
}
