package imm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNormalWishartValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NormalWishart)
	}{
		{"empty mean", func(p *NormalWishart) { p.Mean = nil }},
		{"infinite mean", func(p *NormalWishart) { p.Mean[0] = math.Inf(1) }},
		{"zero kappa", func(p *NormalWishart) { p.Kappa = 0 }},
		{"nu too small", func(p *NormalWishart) { p.Nu = 1 }},
		{"nil scale", func(p *NormalWishart) { p.Scale = nil }},
		{"scale wrong size", func(p *NormalWishart) { p.Scale = identity(3, 1) }},
		{"indefinite scale", func(p *NormalWishart) { p.Scale = mat.NewSymDense(2, []float64{1, 3, 3, 1}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := DefaultNormalWishart([]float64{0, 0}, 1)
			tt.mutate(&prior)
			_, err := NewConjugateGaussian(prior)
			assert.ErrorIs(t, err, ErrInvalidParameter)
			_, err = NewCollapsedConjugateGaussian(prior)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestDefaultNormalWishartExpectedPrecision(t *testing.T) {
	prior := DefaultNormalWishart([]float64{1, 2, 3}, 0.5)
	assert.Equal(t, 5.0, prior.Nu)
	// E[Precision] = Nu * Scale = I / sigma^2.
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 4, prior.Nu*prior.Scale.At(i, i), 1e-12)
	}
}

// logMarginal is log p(x_1..x_n) accumulated through posterior predictives.
func logMarginal(t *testing.T, m CollapsedMixture, x [][]float64) float64 {
	t.Helper()
	s := NewStats(m.Dim())
	var lp float64
	for _, p := range x {
		pred, err := m.Predictive(s)
		require.NoError(t, err)
		lp += pred.LogProb(p)
		s.Add(p)
	}
	return lp
}

func TestPredictiveChainRuleIsOrderFree(t *testing.T) {
	m := newMixture(t, MixtureCollapsedConjugateGaussian, 2).(*CollapsedConjugateGaussian)
	x := randomPoints(8, 6, 2)

	rev := make([][]float64, len(x))
	for i := range x {
		rev[i] = x[len(x)-1-i]
	}
	assert.InDelta(t, logMarginal(t, m, x), logMarginal(t, m, rev), 1e-8)
}

// For any parameter g, prior(g) * likelihood(x | g) / posterior(g | x) is the
// marginal likelihood, which the predictive chain rule also computes.
func TestConjugateBayesIdentity(t *testing.T) {
	m := newMixture(t, MixtureConjugateGaussian, 2).(*ConjugateGaussian)
	x := randomPoints(9, 5, 2)
	want := logMarginal(t, m, x)

	s := NewStats(2)
	for _, p := range x {
		s.Add(p)
	}
	rng := newRand(1)
	for k := 0; k < 4; k++ {
		g, err := m.SamplePosterior(s, nil, rng)
		require.NoError(t, err)
		post, err := m.LogTransition(s, nil, g)
		require.NoError(t, err)

		got := m.LogPrior(g) - post
		for _, p := range x {
			got += g.LogProb(p)
		}
		assert.InDelta(t, want, got, 1e-7)
	}
}

func TestConjugatePosteriorConcentrates(t *testing.T) {
	m := newMixture(t, MixtureConjugateGaussian, 1).(*ConjugateGaussian)
	rng := newRand(2)
	s := NewStats(1)
	for i := 0; i < 2000; i++ {
		s.Add([]float64{3 + 0.5*rng.NormFloat64()})
	}

	g, err := m.SamplePosterior(s, nil, rng)
	require.NoError(t, err)
	assert.InDelta(t, 3, g.Mean[0], 0.1)
	assert.InDelta(t, 4, g.Precision.At(0, 0), 0.6)
}

func TestEmptyPredictiveIsPrior(t *testing.T) {
	m := newMixture(t, MixtureCollapsedConjugateGaussian, 2).(*CollapsedConjugateGaussian)
	pred, err := m.Predictive(NewStats(2))
	require.NoError(t, err)
	assert.Same(t, m.prior0, pred)
}
