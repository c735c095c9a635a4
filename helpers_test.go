package imm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// twoBlobs returns perBlob points around (-5, -5) followed by perBlob points
// around (5, 5), with standard deviation 0.3, and the true labels.
func twoBlobs(seed uint64, perBlob int) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(seed, seed^0xabcdef))
	x := make([][]float64, 0, 2*perBlob)
	truth := make([]int, 0, 2*perBlob)
	for b, centre := range []float64{-5, 5} {
		for i := 0; i < perBlob; i++ {
			x = append(x, []float64{centre + 0.3*rng.NormFloat64(), centre + 0.3*rng.NormFloat64()})
			truth = append(truth, b)
		}
	}
	return x, truth
}

// randomPoints returns n points uniform on [0, 10)^dim.
func randomPoints(seed uint64, n, dim int) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 1))
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, dim)
		for j := range x[i] {
			x[i][j] = 10 * rng.Float64()
		}
	}
	return x
}

func singletons(n int) []int {
	c := make([]int, n)
	for i := range c {
		c[i] = i
	}
	return c
}

func identity(d int, v float64) *mat.SymDense {
	s := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		s.SetSym(i, i, v)
	}
	return s
}

func newDP(t testing.TB, alpha float64) *DP {
	t.Helper()
	p, err := NewDP(alpha)
	require.NoError(t, err)
	return p
}

func newMFM(t testing.TB, gamma, lambda float64) *MFM {
	t.Helper()
	p, err := NewMFM(gamma, lambda)
	require.NoError(t, err)
	return p
}

// newMixture builds a Gaussian mixture of the given kind whose prior expects
// unit component standard deviation around the origin.
func newMixture(t testing.TB, kind MixtureKind, dim int) MixtureModel {
	t.Helper()
	prior := DefaultNormalWishart(make([]float64, dim), 1)
	var (
		m   MixtureModel
		err error
	)
	switch kind {
	case MixtureCollapsedConjugateGaussian:
		m, err = NewCollapsedConjugateGaussian(prior)
	case MixtureConjugateGaussian:
		m, err = NewConjugateGaussian(prior)
	case MixtureNonconjugateGaussian:
		m, err = NewNonconjugateGaussian(prior.Mean, identity(dim, 100), prior.Scale, prior.Nu)
	default:
		t.Fatalf("unknown mixture kind %q", kind)
	}
	require.NoError(t, err)
	return m
}

func newSampler(t testing.TB, kind SamplerKind, p ProcessModel, m MixtureModel) Sampler {
	t.Helper()
	var (
		s   Sampler
		err error
	)
	switch kind {
	case SamplerGibbs:
		s, err = NewGibbsSampler(p, m)
	case SamplerRGMS:
		s, err = NewRGMSSampler(p, m)
	case SamplerSlice:
		s, err = NewSliceSampler(p, m)
	default:
		t.Fatalf("unknown sampler kind %q", kind)
	}
	require.NoError(t, err)
	return s
}

// setPartitions calls fn with every partition of n items, as restricted
// growth strings.
func setPartitions(n int, fn func(labels []int)) {
	labels := make([]int, n)
	var rec func(i, k int)
	rec = func(i, k int) {
		if i == n {
			fn(append([]int(nil), labels...))
			return
		}
		for l := 0; l <= k; l++ {
			labels[i] = l
			next := k
			if l == k {
				next = k + 1
			}
			rec(i+1, next)
		}
	}
	rec(0, 0)
}

// clusterSizes returns the size of each label of a canonical assignment.
func clusterSizes(labels []int) []int {
	var sizes []int
	for _, l := range labels {
		for len(sizes) <= l {
			sizes = append(sizes, 0)
		}
		sizes[l]++
	}
	return sizes
}

// partitionKey encodes a canonical assignment as a map key.
func partitionKey(labels []int) string {
	b := make([]byte, len(labels))
	for i, l := range labels {
		b[i] = byte('0' + l)
	}
	return string(b)
}

func nan() float64 { return math.NaN() }
