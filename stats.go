package imm

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Stats holds the Gaussian sufficient statistics of a set of observations:
// the count, the vector sum and the sum of outer products.
type Stats struct {
	N       int
	Sum     []float64
	Scatter *mat.SymDense
}

// NewStats returns empty statistics for dim-dimensional observations.
func NewStats(dim int) *Stats {
	return &Stats{
		Sum:     make([]float64, dim),
		Scatter: mat.NewSymDense(dim, nil),
	}
}

// Dim returns the observation dimension.
func (s *Stats) Dim() int { return len(s.Sum) }

// Add accumulates x.
func (s *Stats) Add(x []float64) {
	s.N++
	floats.Add(s.Sum, x)
	s.Scatter.SymRankOne(s.Scatter, 1, mat.NewVecDense(len(x), x))
}

// Remove subtracts a previously added x. Once the count reaches zero the
// accumulators are reset so rounding residue does not leak into the next
// cluster that reuses the slot.
func (s *Stats) Remove(x []float64) {
	s.N--
	if s.N == 0 {
		s.Reset()
		return
	}
	floats.Sub(s.Sum, x)
	s.Scatter.SymRankOne(s.Scatter, -1, mat.NewVecDense(len(x), x))
}

// Reset empties the statistics in place.
func (s *Stats) Reset() {
	s.N = 0
	for i := range s.Sum {
		s.Sum[i] = 0
	}
	s.Scatter.Zero()
}

// Merge adds the statistics of o into s.
func (s *Stats) Merge(o *Stats) {
	s.N += o.N
	floats.Add(s.Sum, o.Sum)
	s.Scatter.AddSym(s.Scatter, o.Scatter)
}

// Clone returns a deep copy.
func (s *Stats) Clone() *Stats {
	c := NewStats(s.Dim())
	c.N = s.N
	copy(c.Sum, s.Sum)
	c.Scatter.CopySym(s.Scatter)
	return c
}

// Mean returns the sample mean, or nil when empty.
func (s *Stats) Mean() []float64 {
	if s.N == 0 {
		return nil
	}
	m := make([]float64, len(s.Sum))
	floats.ScaleTo(m, 1/float64(s.N), s.Sum)
	return m
}

// CenteredScatter returns sum (x - mean)(x - mean)^T.
func (s *Stats) CenteredScatter() *mat.SymDense {
	d := s.Dim()
	c := mat.NewSymDense(d, nil)
	c.CopySym(s.Scatter)
	if s.N > 0 {
		c.SymRankOne(c, -1/float64(s.N), mat.NewVecDense(d, append([]float64(nil), s.Sum...)))
	}
	return c
}
