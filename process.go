package imm

import (
	"math"
	"sync"
)

// ProcessModel supplies the prior over partitions. Masses are returned in log
// space and are only meaningful up to a shared constant.
type ProcessModel interface {
	Kind() ProcessKind

	// LogExistingMass is the log prior mass for joining a cluster that
	// currently holds size > 0 other observations.
	LogExistingMass(size int) float64

	// LogNewMass is the log prior mass for opening a new cluster when k
	// clusters are occupied by the other observations out of n in total.
	LogNewMass(k, n int) float64

	// LogPartition is the log exchangeable partition probability of a
	// partition of n observations into clusters of the given sizes, up to a
	// constant that depends only on n.
	LogPartition(sizes []int, n int) float64
}

// StickBreaker is implemented by process models with a stick-breaking
// representation whose residual breaks are Beta(1, Concentration()).
type StickBreaker interface {
	Concentration() float64
}

// DP is a Dirichlet process with concentration Alpha.
type DP struct {
	Alpha float64
}

// NewDP returns a Dirichlet process. alpha must be finite and > 0.
func NewDP(alpha float64) (*DP, error) {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return nil, invalidParam("alpha", alpha, "must be finite and > 0")
	}
	return &DP{Alpha: alpha}, nil
}

func (*DP) Kind() ProcessKind { return ProcessDP }

func (*DP) LogExistingMass(size int) float64 { return math.Log(float64(size)) }

func (p *DP) LogNewMass(k, n int) float64 { return math.Log(p.Alpha) }

func (p *DP) LogPartition(sizes []int, n int) float64 {
	lp := float64(len(sizes)) * math.Log(p.Alpha)
	for _, s := range sizes {
		lg, _ := math.Lgamma(float64(s))
		lp += lg
	}
	return lp
}

func (p *DP) Concentration() float64 { return p.Alpha }

// MFM is a mixture of finite mixtures (Miller & Harrison, 2018): the number
// of components K satisfies K-1 ~ Poisson(Lambda) and the weights are
// symmetric Dirichlet(Gamma).
type MFM struct {
	Gamma  float64
	Lambda float64

	mu     sync.Mutex
	logVns map[[2]int]float64
}

// NewMFM returns a mixture of finite mixtures process. gamma and lambda must
// be finite and > 0.
func NewMFM(gamma, lambda float64) (*MFM, error) {
	if !(gamma > 0) || math.IsInf(gamma, 0) {
		return nil, invalidParam("gamma", gamma, "must be finite and > 0")
	}
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return nil, invalidParam("lambda", lambda, "must be finite and > 0")
	}
	return &MFM{Gamma: gamma, Lambda: lambda, logVns: map[[2]int]float64{}}, nil
}

func (*MFM) Kind() ProcessKind { return ProcessMFM }

func (p *MFM) LogExistingMass(size int) float64 { return math.Log(float64(size) + p.Gamma) }

func (p *MFM) LogNewMass(k, n int) float64 {
	return math.Log(p.Gamma) + p.logV(n, k+1) - p.logV(n, k)
}

func (p *MFM) LogPartition(sizes []int, n int) float64 {
	lgG, _ := math.Lgamma(p.Gamma)
	lp := p.logV(n, len(sizes))
	for _, s := range sizes {
		lg, _ := math.Lgamma(float64(s) + p.Gamma)
		lp += lg - lgG
	}
	return lp
}

// logV returns log V_n(t), memoized. Safe for concurrent use.
func (p *MFM) logV(n, t int) float64 {
	key := [2]int{n, t}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.logVns == nil {
		p.logVns = map[[2]int]float64{}
	}
	if v, ok := p.logVns[key]; ok {
		return v
	}
	v := mfmLogV(n, t, p.Gamma, p.Lambda)
	p.logVns[key] = v
	return v
}

// mfmLogV computes
//
//	V_n(t) = sum_{K>=max(t,1)} K!/(K-t)! * Gamma(gK)/Gamma(gK+n) * p(K)
//
// with p(K) the shifted Poisson pmf, accumulating in log space until the
// terms are past their peak and 40 nats below the running sum.
func mfmLogV(n, t int, gamma, lambda float64) float64 {
	const (
		tailNats = 40
		maxTerms = 1 << 20
	)
	logLambda := math.Log(lambda)
	total := math.Inf(-1)
	prev := math.Inf(-1)
	start := max(t, 1)
	for k := start; k < start+maxTerms; k++ {
		kf := float64(k)
		lf1, _ := math.Lgamma(kf + 1)
		lf2, _ := math.Lgamma(kf - float64(t) + 1)
		lr1, _ := math.Lgamma(gamma * kf)
		lr2, _ := math.Lgamma(gamma*kf + float64(n))
		lk, _ := math.Lgamma(kf)
		term := lf1 - lf2 + lr1 - lr2 - lambda + (kf-1)*logLambda - lk

		total = logAddExp(total, term)
		if term < prev && term < total-tailNats {
			break
		}
		prev = term
	}
	return total
}

func logAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a > b {
		return a + math.Log1p(math.Exp(b-a))
	}
	return b + math.Log1p(math.Exp(a-b))
}
