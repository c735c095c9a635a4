package imm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmat"
	"gonum.org/v1/gonum/stat/distmv"
)

// NonconjugateGaussian is a Gaussian mixture whose component mean and
// precision have independent priors:
//
//	Mean ~ N(mean, meanCov)
//	Precision ~ Wishart(scale, nu)
//
// Its parameter transition is a two-block Gibbs update: the mean given the
// current precision, then the precision given the new mean.
type NonconjugateGaussian struct {
	mean     []float64
	meanCov  *mat.SymDense
	meanPrec *mat.SymDense
	scale    *mat.SymDense
	scaleInv *mat.SymDense
	nu       float64

	meanPrior *distmv.Normal
	precPrior *distmat.Wishart
}

// NewNonconjugateGaussian validates the priors and returns the model.
func NewNonconjugateGaussian(mean []float64, meanCov, scale *mat.SymDense, nu float64) (*NonconjugateGaussian, error) {
	d := len(mean)
	if d == 0 {
		return nil, invalidParam("prior mean", mean, "must be non-empty")
	}
	if !allFinite(mean) {
		return nil, invalidParam("prior mean", mean, "must be finite")
	}
	if err := checkSymPD("mean covariance", meanCov, d); err != nil {
		return nil, err
	}
	if err := checkSymPD("scale", scale, d); err != nil {
		return nil, err
	}
	if !(nu > float64(d-1)) || math.IsInf(nu, 0) {
		return nil, invalidParam("nu", nu, "must be finite and > dim-1 = %d", d-1)
	}

	meanPrec, err := inverseSym(meanCov)
	if err != nil {
		return nil, err
	}
	scaleInv, err := inverseSym(scale)
	if err != nil {
		return nil, err
	}
	meanPrior, ok := distmv.NewNormal(mean, meanCov, nil)
	if !ok {
		return nil, invalidParam("mean covariance", "matrix", "must be positive definite")
	}
	precPrior, ok := distmat.NewWishart(scale, nu, nil)
	if !ok {
		return nil, invalidParam("scale", "matrix", "must be positive definite")
	}
	return &NonconjugateGaussian{
		mean:      append([]float64(nil), mean...),
		meanCov:   cloneSym(meanCov),
		meanPrec:  meanPrec,
		scale:     cloneSym(scale),
		scaleInv:  scaleInv,
		nu:        nu,
		meanPrior: meanPrior,
		precPrior: precPrior,
	}, nil
}

func (*NonconjugateGaussian) Kind() MixtureKind { return MixtureNonconjugateGaussian }

func (m *NonconjugateGaussian) Dim() int { return len(m.mean) }

func (m *NonconjugateGaussian) SamplePrior(rng *rand.Rand) (*Gaussian, error) {
	w, ok := distmat.NewWishart(m.scale, m.nu, rng)
	if !ok {
		return nil, fmt.Errorf("imm: prior wishart scale: %w", ErrNumerical)
	}
	prec := mat.NewSymDense(m.Dim(), nil)
	w.RandSymTo(prec)

	norm, ok := distmv.NewNormal(m.mean, m.meanCov, rng)
	if !ok {
		return nil, fmt.Errorf("imm: prior mean covariance: %w", ErrNumerical)
	}
	return NewGaussian(norm.Rand(nil), prec)
}

func (m *NonconjugateGaussian) LogPrior(g *Gaussian) float64 {
	return m.meanPrior.LogProb(g.Mean) + m.precPrior.LogProbSym(g.Precision)
}

// SamplePosterior draws Mean | prev.Precision, then Precision | new Mean. A
// nil prev starts the chain from a prior draw of the precision.
func (m *NonconjugateGaussian) SamplePosterior(s *Stats, prev *Gaussian, rng *rand.Rand) (*Gaussian, error) {
	if prev == nil {
		var err error
		if prev, err = m.SamplePrior(rng); err != nil {
			return nil, err
		}
	}
	meanDist, err := m.meanConditional(s, prev.Precision, rng)
	if err != nil {
		return nil, err
	}
	mean := meanDist.Rand(nil)

	precDist, err := m.precConditional(s, mean, rng)
	if err != nil {
		return nil, err
	}
	prec := mat.NewSymDense(m.Dim(), nil)
	precDist.RandSymTo(prec)
	return NewGaussian(mean, prec)
}

func (m *NonconjugateGaussian) LogTransition(s *Stats, prev, next *Gaussian) (float64, error) {
	if prev == nil {
		return 0, fmt.Errorf("imm: nonconjugate transition needs a previous parameter: %w", ErrNumerical)
	}
	meanDist, err := m.meanConditional(s, prev.Precision, nil)
	if err != nil {
		return 0, err
	}
	precDist, err := m.precConditional(s, next.Mean, nil)
	if err != nil {
		return 0, err
	}
	return meanDist.LogProb(next.Mean) + precDist.LogProbSym(next.Precision), nil
}

// meanConditional is N(P^-1 (P0 m0 + prec sum), P^-1) with P = P0 + n prec.
func (m *NonconjugateGaussian) meanConditional(s *Stats, prec *mat.SymDense, src rand.Source) (*distmv.Normal, error) {
	d := m.Dim()
	postPrec := mat.NewSymDense(d, nil)
	postPrec.CopySym(m.meanPrec)
	if s.N > 0 {
		scaled := mat.NewSymDense(d, nil)
		scaled.ScaleSym(float64(s.N), prec)
		postPrec.AddSym(postPrec, scaled)
	}

	rhs := mat.NewVecDense(d, nil)
	rhs.MulVec(m.meanPrec, mat.NewVecDense(d, m.mean))
	if s.N > 0 {
		var data mat.VecDense
		data.MulVec(prec, mat.NewVecDense(d, s.Sum))
		rhs.AddVec(rhs, &data)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(postPrec); !ok {
		return nil, fmt.Errorf("imm: mean conditional precision of a %d-member cluster: %w", s.N, ErrNumerical)
	}
	var mu mat.VecDense
	if err := chol.SolveVecTo(&mu, rhs); err != nil {
		return nil, fmt.Errorf("imm: mean conditional of a %d-member cluster: %v: %w", s.N, err, ErrNumerical)
	}
	norm, ok := distmv.NewNormalPrecision(mat.Col(nil, 0, &mu), postPrec, src)
	if !ok {
		return nil, fmt.Errorf("imm: mean conditional precision of a %d-member cluster: %w", s.N, ErrNumerical)
	}
	return norm, nil
}

// precConditional is Wishart(V, nu + n) with V^-1 = scale^-1 + sum (x-mean)(x-mean)^T.
func (m *NonconjugateGaussian) precConditional(s *Stats, mean []float64, src rand.Source) (*distmat.Wishart, error) {
	d := m.Dim()
	inv := mat.NewSymDense(d, nil)
	inv.CopySym(m.scaleInv)
	if s.N > 0 {
		mu := mat.NewVecDense(d, mean)
		inv.AddSym(inv, s.Scatter)
		inv.RankTwo(inv, -1, mu, mat.NewVecDense(d, s.Sum))
		inv.SymRankOne(inv, float64(s.N), mu)
	}
	scale, err := inverseSym(inv)
	if err != nil {
		return nil, err
	}
	w, ok := distmat.NewWishart(scale, m.nu+float64(s.N), src)
	if !ok {
		return nil, fmt.Errorf("imm: precision conditional of a %d-member cluster: %w", s.N, ErrNumerical)
	}
	return w, nil
}
