// Package tensor generates the synthetic model input.
package tensor

import (
	"math/rand/v2"
	"sync"
)

// Tensor is a nested float array laid out as [batch][rows][features].
type Tensor [][][]float64

// Shape returns the length of each dimension, reading the first element of
// the outer dimensions. An empty middle dimension reports a feature count of 0.
func (t Tensor) Shape() [3]int {
	var s [3]int
	s[0] = len(t)
	if len(t) == 0 {
		return s
	}
	s[1] = len(t[0])
	if len(t[0]) == 0 {
		return s
	}
	s[2] = len(t[0][0])
	return s
}

// Generator draws tensors from a random source.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator reading from src. A nil src uses a
// randomly seeded source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// Generate returns a [1][length][1] tensor of uniform values in [0,1).
// A non-positive length yields [[]].
func (g *Generator) Generate(length int) Tensor {
	rows := make([][]float64, 0, max(length, 0))

	g.mu.Lock()
	defer g.mu.Unlock()
	for range length {
		rows = append(rows, []float64{g.rng.Float64()})
	}
	return Tensor{rows}
}
