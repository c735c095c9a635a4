package imm

import (
	"fmt"
	"math"
)

// GibbsSampler is the auxiliary-variable Gibbs sampler (Neal 2000,
// Algorithm 8). Each observation is offered every occupied cluster plus M
// auxiliary components; a singleton's own parameter is reused as the first
// auxiliary component.
type GibbsSampler struct {
	b *binding
}

// NewGibbsSampler binds a process and a mixture model. It returns an
// *IncompatibleModelError if either is outside the sampler's declared set.
func NewGibbsSampler(p ProcessModel, m MixtureModel) (*GibbsSampler, error) {
	b, err := bind(SamplerGibbs, p, m)
	if err != nil {
		return nil, err
	}
	return &GibbsSampler{b: b}, nil
}

func (*GibbsSampler) Kind() SamplerKind { return SamplerGibbs }

// Infer runs one scan over all observations per iteration, followed by a
// parameter update of every cluster when parameters are explicit.
func (s *GibbsSampler) Infer(x [][]float64, c []int, cfg Config) (*Trace, error) {
	return infer(s.b, x, c, cfg, func(ch *chain) error {
		if err := ch.gibbsScan(); err != nil {
			return err
		}
		return ch.resampleParams()
	})
}

// gibbsScan reassigns every observation in index order.
func (ch *chain) gibbsScan() error {
	proc := ch.b.process
	logM := math.Log(float64(ch.m))
	if cap(ch.aux) < ch.m {
		ch.aux = make([]*Gaussian, ch.m)
	}
	aux := ch.aux[:ch.m]

	for i := 0; i < ch.n; i++ {
		xi := ch.x[i]
		old := ch.assign[i]
		var reuse *Gaussian
		if ch.arena.remove(old, i, xi) {
			reuse = ch.arena.slots[old].param
			ch.arena.retire(old)
		}

		ch.cand = ch.arena.occupied(ch.cand[:0])
		k := len(ch.cand)
		logw := ch.logw[:0]
		for _, slot := range ch.cand {
			cl := ch.arena.slots[slot]
			ll, err := ch.logLik(cl, xi)
			if err != nil {
				return err
			}
			logw = append(logw, proc.LogExistingMass(cl.size())+ll)
		}

		newMass := proc.LogNewMass(k, ch.n) - logM
		if ch.b.parametric != nil {
			for a := range aux {
				if a == 0 && reuse != nil {
					aux[a] = reuse
				} else {
					g, err := ch.b.parametric.SamplePrior(ch.rng)
					if err != nil {
						return err
					}
					aux[a] = g
				}
				logw = append(logw, newMass+aux[a].LogProb(xi))
			}
		} else {
			lp := ch.prior0.LogProb(xi)
			for range aux {
				logw = append(logw, newMass+lp)
			}
		}
		ch.logw = logw

		pick, err := ch.cat.draw(ch.rng, logw)
		if err != nil {
			return fmt.Errorf("imm: observation %d: %w", i, err)
		}
		var slot int
		if pick < k {
			slot = ch.cand[pick]
		} else {
			slot = ch.arena.open()
			ch.arena.slots[slot].param = aux[pick-k]
		}
		ch.arena.add(slot, i, xi)
		ch.assign[i] = slot
	}
	clear(aux)
	return nil
}
