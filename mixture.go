package imm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// MixtureModel is the emission side of a sampler. Every variant also
// implements the capability its Kind requires: CollapsedMixture for collapsed
// kinds, ParametricMixture otherwise.
type MixtureModel interface {
	Kind() MixtureKind
	Dim() int
}

// Predictive is a posterior predictive density over a single observation.
type Predictive interface {
	LogProb(x []float64) float64
}

// CollapsedMixture integrates component parameters out analytically.
type CollapsedMixture interface {
	MixtureModel

	// Predictive returns the posterior predictive of a new observation given
	// the members summarised by s. Empty statistics yield the prior
	// predictive.
	Predictive(s *Stats) (Predictive, error)
}

// ParametricMixture keeps an explicit Gaussian parameter per cluster.
type ParametricMixture interface {
	MixtureModel

	// SamplePrior draws a component parameter from the base measure.
	SamplePrior(rng *rand.Rand) (*Gaussian, error)

	// LogPrior is the base-measure log density of g.
	LogPrior(g *Gaussian) float64

	// SamplePosterior performs one Gibbs transition of a component parameter
	// given its members. Conjugate models ignore prev and draw exactly from
	// the posterior.
	SamplePosterior(s *Stats, prev *Gaussian, rng *rand.Rand) (*Gaussian, error)

	// LogTransition is the log density of SamplePosterior moving prev to next.
	LogTransition(s *Stats, prev, next *Gaussian) (float64, error)
}

// inverseSym inverts a symmetric positive definite matrix.
func inverseSym(a mat.Symmetric) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("imm: matrix is not positive definite: %w", ErrNumerical)
	}
	inv := mat.NewSymDense(a.SymmetricDim(), nil)
	if err := chol.InverseTo(inv); err != nil {
		return nil, fmt.Errorf("imm: invert matrix: %v: %w", err, ErrNumerical)
	}
	return inv, nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func checkSymPD(name string, a *mat.SymDense, dim int) error {
	if a == nil {
		return invalidParam(name, nil, "must not be nil")
	}
	if a.SymmetricDim() != dim {
		return invalidParam(name, a.SymmetricDim(), "must be %dx%d", dim, dim)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return invalidParam(name, "matrix", "must be positive definite")
	}
	return nil
}

func cloneSym(a *mat.SymDense) *mat.SymDense {
	c := mat.NewSymDense(a.SymmetricDim(), nil)
	c.CopySym(a)
	return c
}
