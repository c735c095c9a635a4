package main

import (
	"fmt"
	"os"

	"github.com/TrevorS/imm"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// runFile is the YAML description of an inference run.
type runFile struct {
	Sampler string      `yaml:"sampler"`
	Process processSpec `yaml:"process"`
	Mixture mixtureSpec `yaml:"mixture"`

	M       int    `yaml:"m"`
	Scheme  []int  `yaml:"scheme"`
	MaxIter int    `yaml:"max_iter"`
	Warmup  *int   `yaml:"warmup"`
	Seed    uint64 `yaml:"seed"`
	Workers int    `yaml:"workers"`
	Chains  int    `yaml:"chains"`

	// Init is "single" (one cluster) or "singletons" (one per point).
	Init string `yaml:"init"`
}

type processSpec struct {
	Kind   string  `yaml:"kind"`
	Alpha  float64 `yaml:"alpha"`
	Gamma  float64 `yaml:"gamma"`
	Lambda float64 `yaml:"lambda"`
}

type mixtureSpec struct {
	Kind string `yaml:"kind"`

	// Mean defaults to the data mean.
	Mean []float64 `yaml:"mean"`
	// Sigma is the expected component standard deviation used when Scale
	// is not given.
	Sigma float64     `yaml:"sigma"`
	Kappa float64     `yaml:"kappa"`
	Nu    float64     `yaml:"nu"`
	Scale [][]float64 `yaml:"scale"`

	// MeanCov is the nonconjugate mean prior covariance. Defaults to the
	// identity scaled by 100 sigma^2.
	MeanCov [][]float64 `yaml:"mean_cov"`
}

func defaultRunFile() runFile {
	cfg := imm.DefaultConfig()
	return runFile{
		Sampler: string(imm.SamplerGibbs),
		Process: processSpec{Kind: string(imm.ProcessDP), Alpha: 1, Gamma: 1, Lambda: 1},
		Mixture: mixtureSpec{Kind: string(imm.MixtureConjugateGaussian), Sigma: 1},
		M:       cfg.M,
		Scheme:  []int{cfg.Scheme.SplitScans, cfg.Scheme.SplitMergeMoves, cfg.Scheme.GibbsScans, cfg.Scheme.MergeScans},
		MaxIter: cfg.MaxIter,
		Chains:  1,
		Init:    "single",
	}
}

// loadRunFile overlays the YAML file at path onto the defaults. An empty path
// returns the defaults.
func loadRunFile(path string) (runFile, error) {
	rf := defaultRunFile()
	if path == "" {
		return rf, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return rf, fmt.Errorf("read run file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return rf, fmt.Errorf("parse run file %s: %w", path, err)
	}
	return rf, nil
}

func (rf runFile) config() (imm.Config, error) {
	cfg := imm.DefaultConfig()
	cfg.M = rf.M
	cfg.MaxIter = rf.MaxIter
	if rf.Warmup != nil {
		cfg.Warmup = *rf.Warmup
	}
	cfg.Seed = rf.Seed
	cfg.Workers = rf.Workers
	if len(rf.Scheme) != 4 {
		return cfg, fmt.Errorf("scheme needs 4 entries, got %d", len(rf.Scheme))
	}
	cfg.Scheme = imm.Scheme{
		SplitScans:      rf.Scheme[0],
		SplitMergeMoves: rf.Scheme[1],
		GibbsScans:      rf.Scheme[2],
		MergeScans:      rf.Scheme[3],
	}
	return cfg, nil
}

func (rf runFile) initial(n int) ([]int, error) {
	c := make([]int, n)
	switch rf.Init {
	case "single", "":
	case "singletons":
		for i := range c {
			c[i] = i
		}
	default:
		return nil, fmt.Errorf("unknown init %q (want single or singletons)", rf.Init)
	}
	return c, nil
}

func (p processSpec) build() (imm.ProcessModel, error) {
	switch imm.ProcessKind(p.Kind) {
	case imm.ProcessDP:
		return imm.NewDP(p.Alpha)
	case imm.ProcessMFM:
		return imm.NewMFM(p.Gamma, p.Lambda)
	default:
		return nil, fmt.Errorf("unknown process %q", p.Kind)
	}
}

func (m mixtureSpec) build(x [][]float64) (imm.MixtureModel, error) {
	d := len(x[0])
	mean := m.Mean
	if mean == nil {
		mean = dataMean(x)
	}
	if len(mean) != d {
		return nil, fmt.Errorf("mixture mean has length %d, data has dimension %d", len(mean), d)
	}

	prior := imm.DefaultNormalWishart(mean, m.Sigma)
	if m.Kappa > 0 {
		prior.Kappa = m.Kappa
	}
	if m.Nu > 0 {
		prior.Nu = m.Nu
	}
	if m.Scale != nil {
		scale, err := symFromRows("scale", m.Scale, d)
		if err != nil {
			return nil, err
		}
		prior.Scale = scale
	}

	switch imm.MixtureKind(m.Kind) {
	case imm.MixtureCollapsedConjugateGaussian:
		return imm.NewCollapsedConjugateGaussian(prior)
	case imm.MixtureConjugateGaussian:
		return imm.NewConjugateGaussian(prior)
	case imm.MixtureNonconjugateGaussian:
		meanCov := mat.NewSymDense(d, nil)
		for i := 0; i < d; i++ {
			meanCov.SetSym(i, i, 100*m.Sigma*m.Sigma)
		}
		if m.MeanCov != nil {
			var err error
			if meanCov, err = symFromRows("mean_cov", m.MeanCov, d); err != nil {
				return nil, err
			}
		}
		return imm.NewNonconjugateGaussian(prior.Mean, meanCov, prior.Scale, prior.Nu)
	default:
		return nil, fmt.Errorf("unknown mixture %q", m.Kind)
	}
}

func newSampler(kind string, p imm.ProcessModel, m imm.MixtureModel) (imm.Sampler, error) {
	switch imm.SamplerKind(kind) {
	case imm.SamplerGibbs:
		return imm.NewGibbsSampler(p, m)
	case imm.SamplerRGMS:
		return imm.NewRGMSSampler(p, m)
	case imm.SamplerSlice:
		return imm.NewSliceSampler(p, m)
	default:
		return nil, fmt.Errorf("unknown sampler %q", kind)
	}
}

func symFromRows(name string, rows [][]float64, d int) (*mat.SymDense, error) {
	if len(rows) != d {
		return nil, fmt.Errorf("%s has %d rows, want %d", name, len(rows), d)
	}
	s := mat.NewSymDense(d, nil)
	for i, row := range rows {
		if len(row) != d {
			return nil, fmt.Errorf("%s row %d has %d columns, want %d", name, i, len(row), d)
		}
		for j := i; j < d; j++ {
			if row[j] != rows[j][i] {
				return nil, fmt.Errorf("%s is not symmetric at (%d, %d)", name, i, j)
			}
			s.SetSym(i, j, row[j])
		}
	}
	return s, nil
}

func dataMean(x [][]float64) []float64 {
	mean := make([]float64, len(x[0]))
	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(x))
	}
	return mean
}
