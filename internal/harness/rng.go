package harness

import (
	"math/rand/v2"
	"sync"

	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// DefaultSeed is the key DefaultRNG starts from.
var DefaultSeed = lax.Key{Hi: 0, Lo: 42}

// DefaultRNG is the process-wide generator. Every case draws from it in
// turn, so the values a case sees depend on the cases before it.
var DefaultRNG = NewRNG(DefaultSeed)

// RNG is a seeded generator of argument tensors. It is safe for concurrent
// use, though draws are only reproducible when the call order is.
type RNG struct {
	mu  sync.Mutex
	key lax.Key
	r   *rand.Rand
}

func NewRNG(key lax.Key) *RNG {
	return &RNG{key: key, r: key.Rand()}
}

func (g *RNG) Key() lax.Key {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.key
}

// Reset restarts the stream from key.
func (g *RNG) Reset(key lax.Key) {
	g.mu.Lock()
	g.key, g.r = key, key.Rand()
	g.mu.Unlock()
}

// Uniform draws dt values in [lo, hi); integers are drawn from the closed
// integer range inside it.
func (g *RNG) Uniform(dt dtype.DType, shape []int64, lo, hi float64) (*tensor.Tensor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return lax.UniformFrom(g.r, dt, shape, lo, hi)
}

// Default draws values spread over a range suited to dt: [-100, 100) for
// signed types, [0, 100) for unsigned, standard normal for floats and
// fair coins for bool.
func (g *RNG) Default(dt dtype.DType, shape []int64) (*tensor.Tensor, error) {
	switch {
	case dt == dtype.Bool:
		return g.Uniform(dt, shape, 0, 2)
	case dt.IsUnsigned():
		return g.Uniform(dt, shape, 0, 100)
	case dt.IsInt():
		return g.Uniform(dt, shape, -100, 100)
	default:
		return g.Normal(dt, shape)
	}
}

// Normal draws standard normal values rounded to dt.
func (g *RNG) Normal(dt dtype.DType, shape []int64) (*tensor.Tensor, error) {
	n, err := tensor.NumElements(shape)
	if err != nil {
		return nil, err
	}

	data := make([]float64, n)

	g.mu.Lock()
	for i := range data {
		data[i] = g.r.NormFloat64()
	}
	g.mu.Unlock()

	return tensor.New(dt, data, shape)
}

// Perm draws a permutation of 0..n-1.
func (g *RNG) Perm(n int) []int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.r.Perm(n)
}
