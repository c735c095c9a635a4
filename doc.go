// Package imm implements Bayesian nonparametric clustering with infinite
// mixture models, inferred by Markov chain Monte Carlo.
//
// A sampler is bound to a process model, the prior over partitions (a
// Dirichlet process or a mixture of finite mixtures), and a mixture model,
// the Gaussian emission family. Inference returns a trace of post-warmup
// cluster assignments and, for models with explicit parameters, the
// component parameters of every sample.
//
// Basic usage:
//
//	dp, _ := imm.NewDP(1)
//	mix, _ := imm.NewConjugateGaussian(imm.DefaultNormalWishart(make([]float64, 2), 1))
//	s, err := imm.NewGibbsSampler(dp, mix)
//	if err != nil {
//		// err wraps imm.ErrIncompatibleModel
//	}
//	cfg := imm.DefaultConfig()
//	cfg.Seed = 42
//	trace, err := s.Infer(data, make([]int, len(data)), cfg)
//	// trace.Samples[t].Assignments[i] is the label of point i in sample t
//
// # Samplers
//
// Three samplers are provided, each declaring the models it is correct for:
//
//	GibbsSampler  auxiliary-variable Gibbs    DP, MFM   collapsed, conjugate, nonconjugate
//	RGMSSampler   restricted merge-split      DP, MFM   conjugate, nonconjugate
//	SliceSampler  stick-breaking slice        DP        conjugate, nonconjugate
//
// Binding a model outside these sets fails at construction. Runs are
// reproducible: the same Seed and inputs give an identical trace.
package imm
