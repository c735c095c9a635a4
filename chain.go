package imm

import (
	"fmt"
	"math/rand/v2"
)

// chain is the mutable state of one Infer call. It is owned by a single
// goroutine; the slice sampler's parallel assignment step only reads it.
type chain struct {
	b   *binding
	x   [][]float64
	n   int
	dim int

	// assign[i] is the arena slot holding observation i.
	assign []int
	arena  *arena

	rng     *rand.Rand
	log     *Logger
	metrics MetricsCollector

	m       int
	scheme  Scheme
	workers int

	// prior0 is the prior predictive (collapsed mixtures only).
	prior0 Predictive
	moves  MoveStats

	cat  categorical
	logw []float64
	cand []int
	aux  []*Gaussian
}

// newChain compacts the initial labels into arena slots in order of first
// appearance and, for parametric mixtures, draws every cluster's parameter
// from its posterior.
func newChain(b *binding, x [][]float64, c []int, cfg *Config, rng *rand.Rand, log *Logger) (*chain, error) {
	dim := b.mixture.Dim()
	ch := &chain{
		b:       b,
		x:       x,
		n:       len(x),
		dim:     dim,
		assign:  make([]int, len(x)),
		arena:   newArena(dim),
		rng:     rng,
		log:     log,
		metrics: cfg.Metrics,
		m:       cfg.M,
		scheme:  cfg.Scheme,
		workers: cfg.Workers,
	}

	slotOf := make(map[int]int)
	for i, l := range c {
		slot, ok := slotOf[l]
		if !ok {
			slot = ch.arena.open()
			slotOf[l] = slot
		}
		ch.arena.add(slot, i, x[i])
		ch.assign[i] = slot
	}

	if b.collapsed != nil {
		pred, err := b.collapsed.Predictive(NewStats(dim))
		if err != nil {
			return nil, err
		}
		ch.prior0 = pred
		return ch, nil
	}
	if err := ch.resampleParams(); err != nil {
		return nil, fmt.Errorf("imm: initial parameters: %w", err)
	}
	return ch, nil
}

// logLik is the log density of x under cluster cl: its posterior predictive
// for collapsed mixtures, its explicit parameter otherwise.
func (ch *chain) logLik(cl *cluster, x []float64) (float64, error) {
	if ch.b.collapsed == nil {
		return cl.param.LogProb(x), nil
	}
	if cl.pred == nil {
		pred, err := ch.b.collapsed.Predictive(cl.stats)
		if err != nil {
			return 0, err
		}
		cl.pred = pred
	}
	return cl.pred.LogProb(x), nil
}

// resampleParams redraws every occupied cluster's parameter given its
// members. It is a no-op for collapsed mixtures.
func (ch *chain) resampleParams() error {
	if ch.b.parametric == nil {
		return nil
	}
	ch.cand = ch.arena.occupied(ch.cand[:0])
	for _, slot := range ch.cand {
		cl := ch.arena.slots[slot]
		next, err := ch.b.parametric.SamplePosterior(cl.stats, cl.param, ch.rng)
		if err != nil {
			return fmt.Errorf("imm: resample cluster of %d members: %w", cl.size(), err)
		}
		cl.param = next
	}
	return nil
}

// move reassigns observation i to slot to. The source slot is left in place
// even when it empties.
func (ch *chain) move(i, to int) {
	from := ch.assign[i]
	if from == to {
		return
	}
	ch.arena.remove(from, i, ch.x[i])
	ch.arena.add(to, i, ch.x[i])
	ch.assign[i] = to
}
