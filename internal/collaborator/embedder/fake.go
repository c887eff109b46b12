package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// Fake is a deterministic embedder for tests and default deployments
// without a configured model: it hashes the input text into a
// unit-normalized vector of the configured dimension, so identical text
// always produces the identical vector and distinct text produces
// distinct vectors, without any external dependency.
type Fake struct {
	dims int
}

// NewFake returns a deterministic embedder producing vectors of dims components.
func NewFake(dims int) *Fake {
	return &Fake{dims: dims}
}

func (f *Fake) Dims() int { return f.dims }

func (f *Fake) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dims)
	h := fnv.New64a()
	seed := uint64(1469598103934665603) // FNV offset basis
	for i := range v {
		h.Reset()
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		seed = h.Sum64() ^ seed
		// map the hash into [-1, 1)
		v[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	normalize(v)
	return v, nil
}

func normalize(v []float32) {
	var sumSq float64
	for _, c := range v {
		sumSq += float64(c) * float64(c)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
