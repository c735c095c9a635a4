package imm

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// sliceBlockSize is the number of observations per slice assignment block.
// Block boundaries fix which random stream each observation draws from.
const sliceBlockSize = 256

// sliceBlock is the per-block scratch of the slice assignment step.
type sliceBlock struct {
	rng  *rand.Rand
	cat  categorical
	logw []float64
}

// assignBlocks runs sliceAssign over fixed-size blocks of observations. Block
// b draws from a stream derived from seed and b, so the result is the same
// for any number of workers. The chain is only read.
func (ch *chain) assignBlocks(seed uint64, sticks []stick, u []float64, next []int) error {
	nBlocks := (ch.n + sliceBlockSize - 1) / sliceBlockSize
	run := func(b int) error {
		lo := b * sliceBlockSize
		hi := min(lo+sliceBlockSize, ch.n)
		blk := &sliceBlock{rng: deriveRand(seed, uint64(b))}
		return ch.sliceAssign(lo, hi, sticks, u, next, blk)
	}

	if ch.workers <= 1 || nBlocks == 1 {
		for b := 0; b < nBlocks; b++ {
			if err := run(b); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(ch.workers)
	for b := 0; b < nBlocks; b++ {
		g.Go(func() error { return run(b) })
	}
	return g.Wait()
}

// RunChains runs independent chains of s from the same initial assignment,
// up to cfg.Workers at a time. Chain k is seeded from the run seed and k, so
// the traces are reproducible for a fixed cfg.Seed and independent of
// cfg.Workers. Each chain runs its assignment step sequentially.
//
// The first failing chain cancels the chains that have not started yet and
// its error is returned.
func RunChains(ctx context.Context, s Sampler, x [][]float64, c []int, cfg Config, chains int) ([]*Trace, error) {
	if chains <= 0 {
		return nil, invalidParam("chains", chains, "must be > 0")
	}
	applyDefaults(&cfg)

	base := cfg.Seed
	if cfg.Rand != nil {
		base = cfg.Rand.Uint64()
	}
	for base == 0 {
		base = rand.Uint64()
	}

	traces := make([]*Trace, chains)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for k := 0; k < chains; k++ {
		chainCfg := cfg
		chainCfg.Seed = deriveSeed(base, uint64(k))
		chainCfg.Rand = nil
		chainCfg.Workers = 1
		chainCfg.Logger = cfg.Logger.WithChain(k)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := s.Infer(x, c, chainCfg)
			if err != nil {
				return fmt.Errorf("imm: chain %d: %w", k, err)
			}
			traces[k] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}
