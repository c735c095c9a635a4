package imm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmat"
	"gonum.org/v1/gonum/stat/distmv"
)

// NormalWishart is the conjugate prior on a Gaussian component:
//
//	Precision ~ Wishart(Scale, Nu)
//	Mean | Precision ~ N(Mean, (Kappa * Precision)^-1)
//
// The prior expected precision is Nu * Scale.
type NormalWishart struct {
	Mean  []float64
	Kappa float64
	Nu    float64
	Scale *mat.SymDense
}

// DefaultNormalWishart returns a weakly informative prior centred at mean
// whose expected component standard deviation is sigma along every axis.
func DefaultNormalWishart(mean []float64, sigma float64) NormalWishart {
	d := len(mean)
	nu := float64(d) + 2
	scale := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		scale.SetSym(i, i, 1/(sigma*sigma*nu))
	}
	return NormalWishart{
		Mean:  append([]float64(nil), mean...),
		Kappa: 0.01,
		Nu:    nu,
		Scale: scale,
	}
}

func (p NormalWishart) validate() error {
	d := len(p.Mean)
	if d == 0 {
		return invalidParam("prior mean", p.Mean, "must be non-empty")
	}
	if !allFinite(p.Mean) {
		return invalidParam("prior mean", p.Mean, "must be finite")
	}
	if !(p.Kappa > 0) || math.IsInf(p.Kappa, 0) {
		return invalidParam("kappa", p.Kappa, "must be finite and > 0")
	}
	if !(p.Nu > float64(d-1)) || math.IsInf(p.Nu, 0) {
		return invalidParam("nu", p.Nu, "must be finite and > dim-1 = %d", d-1)
	}
	return checkSymPD("scale", p.Scale, d)
}

// conjugateGaussian carries the Normal-Wishart algebra shared by the
// collapsed and the explicit-parameter variants.
type conjugateGaussian struct {
	prior    NormalWishart
	scaleInv *mat.SymDense
	prior0   *distmv.StudentsT
}

func newConjugateGaussian(prior NormalWishart) (*conjugateGaussian, error) {
	if err := prior.validate(); err != nil {
		return nil, err
	}
	scaleInv, err := inverseSym(prior.Scale)
	if err != nil {
		return nil, err
	}
	c := &conjugateGaussian{prior: prior, scaleInv: scaleInv}
	pred, err := c.predictive(NewStats(len(prior.Mean)))
	if err != nil {
		return nil, err
	}
	c.prior0 = pred
	return c, nil
}

func (c *conjugateGaussian) Dim() int { return len(c.prior.Mean) }

// Prior returns the prior the model was built with.
func (c *conjugateGaussian) Prior() NormalWishart { return c.prior }

// posterior returns the Normal-Wishart posterior given s, with the Wishart
// scale in inverse form.
func (c *conjugateGaussian) posterior(s *Stats) (mean []float64, kappa, nu float64, scaleInv *mat.SymDense) {
	d := c.Dim()
	n := float64(s.N)
	kappa = c.prior.Kappa + n
	nu = c.prior.Nu + n

	mean = make([]float64, d)
	floats.AddScaled(mean, c.prior.Kappa, c.prior.Mean)
	floats.Add(mean, s.Sum)
	floats.Scale(1/kappa, mean)

	scaleInv = mat.NewSymDense(d, nil)
	scaleInv.CopySym(c.scaleInv)
	if s.N > 0 {
		scaleInv.AddSym(scaleInv, s.CenteredScatter())
		diff := s.Mean()
		floats.Sub(diff, c.prior.Mean)
		scaleInv.SymRankOne(scaleInv, c.prior.Kappa*n/kappa, mat.NewVecDense(d, diff))
	}
	return mean, kappa, nu, scaleInv
}

// predictive is the multivariate Student-t posterior predictive.
func (c *conjugateGaussian) predictive(s *Stats) (*distmv.StudentsT, error) {
	mean, kappa, nu, scaleInv := c.posterior(s)
	dof := nu - float64(c.Dim()) + 1
	sigma := mat.NewSymDense(c.Dim(), nil)
	sigma.ScaleSym((kappa+1)/(kappa*dof), scaleInv)
	t, ok := distmv.NewStudentsT(mean, sigma, dof, nil)
	if !ok {
		return nil, fmt.Errorf("imm: predictive scale of a %d-member cluster is not positive definite: %w", s.N, ErrNumerical)
	}
	return t, nil
}

func (c *conjugateGaussian) Predictive(s *Stats) (Predictive, error) {
	if s.N == 0 {
		return c.prior0, nil
	}
	return c.predictive(s)
}

func (c *conjugateGaussian) SamplePrior(rng *rand.Rand) (*Gaussian, error) {
	return c.SamplePosterior(NewStats(c.Dim()), nil, rng)
}

func (c *conjugateGaussian) LogPrior(g *Gaussian) float64 {
	lp, err := c.LogTransition(NewStats(c.Dim()), nil, g)
	if err != nil {
		return math.Inf(-1)
	}
	return lp
}

func (c *conjugateGaussian) SamplePosterior(s *Stats, _ *Gaussian, rng *rand.Rand) (*Gaussian, error) {
	mean, kappa, nu, scaleInv := c.posterior(s)
	scale, err := inverseSym(scaleInv)
	if err != nil {
		return nil, err
	}
	w, ok := distmat.NewWishart(scale, nu, rng)
	if !ok {
		return nil, fmt.Errorf("imm: wishart scale of a %d-member cluster: %w", s.N, ErrNumerical)
	}
	prec := mat.NewSymDense(c.Dim(), nil)
	w.RandSymTo(prec)

	meanPrec := mat.NewSymDense(c.Dim(), nil)
	meanPrec.ScaleSym(kappa, prec)
	norm, ok := distmv.NewNormalPrecision(mean, meanPrec, rng)
	if !ok {
		return nil, fmt.Errorf("imm: sampled precision of a %d-member cluster: %w", s.N, ErrNumerical)
	}
	return NewGaussian(norm.Rand(nil), prec)
}

func (c *conjugateGaussian) LogTransition(s *Stats, _, next *Gaussian) (float64, error) {
	mean, kappa, nu, scaleInv := c.posterior(s)
	scale, err := inverseSym(scaleInv)
	if err != nil {
		return 0, err
	}
	w, ok := distmat.NewWishart(scale, nu, nil)
	if !ok {
		return 0, fmt.Errorf("imm: wishart scale of a %d-member cluster: %w", s.N, ErrNumerical)
	}
	meanPrec := mat.NewSymDense(c.Dim(), nil)
	meanPrec.ScaleSym(kappa, next.Precision)
	norm, ok := distmv.NewNormalPrecision(mean, meanPrec, nil)
	if !ok {
		return math.Inf(-1), nil
	}
	return w.LogProbSym(next.Precision) + norm.LogProb(next.Mean), nil
}

// CollapsedConjugateGaussian is a Gaussian mixture with a Normal-Wishart
// prior whose component parameters are integrated out.
type CollapsedConjugateGaussian struct {
	*conjugateGaussian
}

// NewCollapsedConjugateGaussian validates prior and returns the model.
func NewCollapsedConjugateGaussian(prior NormalWishart) (*CollapsedConjugateGaussian, error) {
	c, err := newConjugateGaussian(prior)
	if err != nil {
		return nil, err
	}
	return &CollapsedConjugateGaussian{c}, nil
}

func (*CollapsedConjugateGaussian) Kind() MixtureKind { return MixtureCollapsedConjugateGaussian }

// ConjugateGaussian is a Gaussian mixture with a Normal-Wishart prior and an
// explicit parameter per component, redrawn from its exact posterior.
type ConjugateGaussian struct {
	*conjugateGaussian
}

// NewConjugateGaussian validates prior and returns the model.
func NewConjugateGaussian(prior NormalWishart) (*ConjugateGaussian, error) {
	c, err := newConjugateGaussian(prior)
	if err != nil {
		return nil, err
	}
	return &ConjugateGaussian{c}, nil
}

func (*ConjugateGaussian) Kind() MixtureKind { return MixtureConjugateGaussian }
