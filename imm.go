package imm

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"
)

// WarmupAuto makes Config.Warmup resolve to MaxIter / 2.
const WarmupAuto = -1

// Scheme controls the restricted Gibbs merge-split sampler.
type Scheme struct {
	// SplitScans is the number of restricted Gibbs scans that build the split
	// launch state. Default: 5.
	SplitScans int

	// SplitMergeMoves is the number of split-merge proposals per iteration.
	// Default: 1.
	SplitMergeMoves int

	// GibbsScans is the number of incremental Gibbs scans per iteration, each
	// followed by a parameter update of every cluster. Default: 1.
	GibbsScans int

	// MergeScans is the number of parameter transitions that build the merge
	// launch state. Default: 5.
	MergeScans int
}

// DefaultScheme returns the (5, 1, 1, 5) scheme.
func DefaultScheme() Scheme {
	return Scheme{SplitScans: 5, SplitMergeMoves: 1, GibbsScans: 1, MergeScans: 5}
}

// Config controls an inference run.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// M is the number of auxiliary components offered to each observation.
	// Required > 0 by the Gibbs and merge-split samplers; the merge-split
	// sampler validates but does not use it. Ignored by the slice sampler.
	// Default: 10.
	M int

	// Scheme is used by the merge-split sampler only. Every entry must be
	// >= 0. Default: DefaultScheme().
	Scheme Scheme

	// MaxIter is the total number of iterations, warmup included.
	// Must be > 0. Default: 1000.
	MaxIter int

	// Warmup is the number of leading iterations left out of the trace.
	// Must satisfy 0 <= Warmup < MaxIter, or be WarmupAuto.
	// Default: WarmupAuto.
	Warmup int

	// Seed makes the run reproducible. 0 draws a fresh seed, reported in
	// Trace.Seed.
	Seed uint64

	// Rand, when set, is used instead of Seed. It is advanced by the run.
	Rand *rand.Rand

	// Workers bounds the goroutines used by the slice sampler's assignment
	// step and by RunChains. Results never depend on it.
	// 0 means runtime.NumCPU().
	Workers int

	// Logger receives run and iteration records. Default: NoopLogger().
	Logger *Logger

	// Metrics receives iteration and move events. Default: NoopMetricsCollector.
	Metrics MetricsCollector
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		M:       10,
		Scheme:  DefaultScheme(),
		MaxIter: 1000,
		Warmup:  WarmupAuto,
	}
}

// applyDefaults fills in fields whose zero value means "default".
func applyDefaults(cfg *Config) {
	if cfg.Warmup == WarmupAuto {
		cfg.Warmup = cfg.MaxIter / 2
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = NoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetricsCollector{}
	}
}

// validateConfig checks cfg against the needs of sampler s.
func validateConfig(s SamplerKind, cfg *Config) error {
	if s != SamplerSlice && cfg.M <= 0 {
		return invalidParam("M", cfg.M, "must be > 0")
	}
	if cfg.MaxIter <= 0 {
		return invalidParam("MaxIter", cfg.MaxIter, "must be > 0")
	}
	if cfg.Warmup < 0 || cfg.Warmup >= cfg.MaxIter {
		return invalidParam("Warmup", cfg.Warmup, "must satisfy 0 <= Warmup < MaxIter = %d", cfg.MaxIter)
	}
	if s == SamplerRGMS {
		sc := cfg.Scheme
		if sc.SplitScans < 0 || sc.SplitMergeMoves < 0 || sc.GibbsScans < 0 || sc.MergeScans < 0 {
			return invalidParam("Scheme", sc, "entries must be >= 0")
		}
	}
	if cfg.Workers < 0 {
		return invalidParam("Workers", cfg.Workers, "must be >= 0")
	}
	return nil
}

// validateData checks the observations and the initial assignment.
func validateData(x [][]float64, c []int, dim int) error {
	if len(x) == 0 {
		return invalidParam("observations", 0, "need at least one")
	}
	for i, row := range x {
		if len(row) != dim {
			return invalidParam(fmt.Sprintf("observation %d", i), len(row), "has dimension %d, model expects %d", len(row), dim)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalidParam(fmt.Sprintf("observation %d", i), row, "must be finite")
			}
		}
	}
	if len(c) != len(x) {
		return invalidParam("initial assignment length", len(c), "must equal the number of observations %d", len(x))
	}
	for i, l := range c {
		if l < 0 {
			return invalidParam(fmt.Sprintf("initial label %d", i), l, "must be >= 0")
		}
	}
	return nil
}

// Sampler runs one MCMC chain over cluster assignments.
type Sampler interface {
	Kind() SamplerKind

	// Infer runs cfg.MaxIter iterations from the initial assignment c and
	// returns one sample per post-warmup iteration. Labels in c may be any
	// non-negative integers; they are compacted before the first iteration.
	// x is only read.
	Infer(x [][]float64, c []int, cfg Config) (*Trace, error)
}

// stepFunc advances a chain by one iteration.
type stepFunc func(ch *chain) error

// infer validates the run and drives step through the iteration budget.
func infer(b *binding, x [][]float64, c []int, cfg Config, step stepFunc) (*Trace, error) {
	applyDefaults(&cfg)
	if err := validateConfig(b.sampler, &cfg); err != nil {
		return nil, err
	}
	if err := validateData(x, c, b.mixture.Dim()); err != nil {
		return nil, err
	}

	rng, seed := resolveRand(&cfg)
	log := cfg.Logger.WithSampler(b.sampler, seed)
	ch, err := newChain(b, x, c, &cfg, rng, log)
	if err != nil {
		return nil, err
	}

	trace := &Trace{
		Sampler: b.sampler,
		Process: b.process.Kind(),
		Mixture: b.mixture.Kind(),
		Seed:    seed,
		MaxIter: cfg.MaxIter,
		Warmup:  cfg.Warmup,
		Samples: make([]Sample, 0, cfg.MaxIter-cfg.Warmup),
	}

	log.LogRunStart(len(x), b.mixture.Dim(), b.process.Kind(), b.mixture.Kind(), cfg.MaxIter, cfg.Warmup)
	start := time.Now()
	for iter := 0; iter < cfg.MaxIter; iter++ {
		t0 := time.Now()
		if err := step(ch); err != nil {
			err = fmt.Errorf("imm: iteration %d: %w", iter, err)
			log.LogRunDone(iter, len(trace.Samples), time.Since(start), err)
			return nil, err
		}
		d := time.Since(t0)
		cfg.Metrics.RecordIteration(b.sampler, iter, ch.arena.active, d)
		log.LogIteration(iter, ch.arena.active, d)

		if iter >= cfg.Warmup {
			trace.Samples = append(trace.Samples, ch.snapshot(iter))
		}
	}
	trace.Moves = ch.moves
	log.LogRunDone(cfg.MaxIter, len(trace.Samples), time.Since(start), nil)
	return trace, nil
}
