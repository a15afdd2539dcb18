// Package sampler draws reproducible random points inside uncertainty
// disks of occurrences.
//
// The Sampler wraps a single seeded random stream. The pipeline hands it
// to chunks in input order, every chunk consumes a fixed allocation of
// numbers: first one angle per record, then one radial fraction per
// record. For the same seed, input order and chunk size the results are
// bit-for-bit identical.
package sampler

import (
	"math"
	"math/rand/v2"

	"github.com/gnames/gncube/pkg/projection"
)

// stream is the second PCG seed word. It stays constant so that a run is
// defined by its seed alone.
const stream = 0x9e3779b97f4a7c15

// Sampler is a seeded random source. It is not safe for concurrent use,
// Draw has to be called from one goroutine in chunk order.
type Sampler struct {
	src *rand.PCG
	rnd *rand.Rand
}

// New creates a Sampler for a seed.
func New(seed int64) *Sampler {
	src := rand.NewPCG(uint64(seed), stream)
	return &Sampler{src: src, rnd: rand.New(src)}
}

// ForChunk creates an independent stream for a chunk index. Streams of
// different chunks do not depend on each other, so chunks that use them
// can be processed in any order. Cells differ from the ones produced by
// a single shared stream.
func ForChunk(seed int64, chunk int) *Sampler {
	src := rand.NewPCG(uint64(seed), stream^uint64(chunk+1))
	return &Sampler{src: src, rnd: rand.New(src)}
}

// Draws are random numbers allocated to one chunk.
type Draws struct {
	// Angle in radians from [0, 2π).
	Angle []float64
	// Fraction of squared radius from [0, 1).
	Fraction []float64
}

// Len returns the number of records covered by the draws.
func (d Draws) Len() int {
	return len(d.Angle)
}

// Draw consumes random numbers for n records.
func (s *Sampler) Draw(n int) Draws {
	res := Draws{
		Angle:    make([]float64, n),
		Fraction: make([]float64, n),
	}
	for i := range n {
		res.Angle[i] = 2 * math.Pi * s.rnd.Float64()
	}
	for i := range n {
		res.Fraction[i] = s.rnd.Float64()
	}
	return res
}

// Offset moves a planar point p to the place inside the disk of radius r
// given by the i-th draw. Radius is r·√u, which keeps points uniform over
// the disk area. Offset is pure and can run in parallel.
func Offset(p projection.Point, r float64, d Draws, i int) projection.Point {
	rad := r * math.Sqrt(d.Fraction[i])
	sin, cos := math.Sincos(d.Angle[i])
	return projection.Point{
		X: p.X + rad*cos,
		Y: p.Y + rad*sin,
	}
}

// MarshalBinary saves the state of the stream.
func (s *Sampler) MarshalBinary() ([]byte, error) {
	return s.src.MarshalBinary()
}

// UnmarshalBinary restores the state saved by MarshalBinary.
func (s *Sampler) UnmarshalBinary(data []byte) error {
	if s.src == nil {
		s.src = &rand.PCG{}
		s.rnd = rand.New(s.src)
	}
	return s.src.UnmarshalBinary(data)
}
