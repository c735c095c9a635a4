package imm

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxSticks bounds the stick-breaking extension of one iteration.
const maxSticks = 1 << 16

// SliceSampler is the slice sampler for Dirichlet process mixtures (Walker
// 2007, in the form of Ge et al. 2015). Given the assignment it draws the
// cluster weights and the residual stick, draws one slice variable per
// observation, breaks the residual until it falls below every slice, and
// reassigns each observation among the clusters whose weight exceeds its
// slice.
//
// Observations are reassigned in blocks that may run in parallel; each block
// draws from its own stream derived from the chain, so a trace depends on
// the seed alone and never on Config.Workers.
type SliceSampler struct {
	b     *binding
	alpha float64
}

// NewSliceSampler binds a process and a mixture model. It returns an
// *IncompatibleModelError if either is outside the sampler's declared set.
func NewSliceSampler(p ProcessModel, m MixtureModel) (*SliceSampler, error) {
	b, err := bind(SamplerSlice, p, m)
	if err != nil {
		return nil, err
	}
	sb, ok := p.(StickBreaker)
	if !ok {
		return nil, &IncompatibleModelError{
			Sampler: SamplerSlice,
			Model:   fmt.Sprintf("%T", p),
			Allowed: kindNames(compatibility[SamplerSlice].processes),
		}
	}
	return &SliceSampler{b: b, alpha: sb.Concentration()}, nil
}

func (*SliceSampler) Kind() SamplerKind { return SamplerSlice }

func (s *SliceSampler) Infer(x [][]float64, c []int, cfg Config) (*Trace, error) {
	return infer(s.b, x, c, cfg, func(ch *chain) error {
		if err := ch.sliceStep(s.alpha); err != nil {
			return err
		}
		return ch.resampleParams()
	})
}

// stick is one represented component of the truncated stick-breaking
// measure.
type stick struct {
	slot   int
	weight float64
	param  *Gaussian
}

func (ch *chain) sliceStep(alpha float64) error {
	mix := ch.b.parametric

	// Weights of the occupied clusters and the residual mass:
	// (w_1, ..., w_k, r) ~ Dirichlet(n_1, ..., n_k, alpha).
	ch.cand = ch.arena.occupied(ch.cand[:0])
	sticks := make([]stick, 0, len(ch.cand)+8)
	weightOf := make([]float64, len(ch.arena.slots))
	var total float64
	for _, slot := range ch.cand {
		cl := ch.arena.slots[slot]
		g := distuv.Gamma{Alpha: float64(cl.size()), Beta: 1, Src: ch.rng}.Rand()
		sticks = append(sticks, stick{slot: slot, weight: g, param: cl.param})
		total += g
	}
	rest := distuv.Gamma{Alpha: alpha, Beta: 1, Src: ch.rng}.Rand()
	total += rest
	for k := range sticks {
		sticks[k].weight /= total
		weightOf[sticks[k].slot] = sticks[k].weight
	}
	rest /= total

	// Slice variables.
	u := make([]float64, ch.n)
	umin := 1.0
	for i, slot := range ch.assign {
		u[i] = sliceVariable(ch.rng, weightOf[slot])
		umin = min(umin, u[i])
	}

	// Break the residual until it cannot cover any slice.
	breaker := distuv.Beta{Alpha: 1, Beta: alpha, Src: ch.rng}
	for rest > umin {
		if len(sticks) >= maxSticks {
			return fmt.Errorf("imm: residual stick %g still above smallest slice %g after %d components: %w",
				rest, umin, maxSticks, ErrNumerical)
		}
		v := breaker.Rand()
		g, err := mix.SamplePrior(ch.rng)
		if err != nil {
			return err
		}
		slot := ch.arena.open()
		ch.arena.slots[slot].param = g
		sticks = append(sticks, stick{slot: slot, weight: rest * v, param: g})
		rest *= 1 - v
	}

	// Heaviest first, so the candidates of observation i are a prefix.
	slices.SortStableFunc(sticks, func(a, b stick) int {
		return cmp.Compare(b.weight, a.weight)
	})

	next := make([]int, ch.n)
	if err := ch.assignBlocks(ch.rng.Uint64(), sticks, u, next); err != nil {
		return err
	}
	for i, slot := range next {
		ch.move(i, slot)
	}
	ch.arena.retireEmpty()
	return nil
}

// sliceVariable draws u uniformly from (0, w]. A zero slice would keep the
// residual stick above it forever.
func sliceVariable(rng *rand.Rand, w float64) float64 {
	return (1 - rng.Float64()) * w
}

// sliceAssign draws new slots for observations [lo, hi) into next.
func (ch *chain) sliceAssign(lo, hi int, sticks []stick, u []float64, next []int, blk *sliceBlock) error {
	for i := lo; i < hi; i++ {
		xi := ch.x[i]
		blk.logw = blk.logw[:0]
		for _, s := range sticks {
			if s.weight <= u[i] {
				break
			}
			blk.logw = append(blk.logw, s.param.LogProb(xi))
		}
		pick, err := blk.cat.draw(blk.rng, blk.logw)
		if err != nil {
			return fmt.Errorf("imm: observation %d: %w", i, err)
		}
		next[i] = sticks[pick].slot
	}
	return nil
}
