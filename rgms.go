package imm

import (
	"fmt"
	"math"
)

// RGMSSampler is the restricted Gibbs merge-split sampler for nonconjugate
// mixtures (Jain & Neal, 2007). Each iteration makes Scheme.SplitMergeMoves
// split-merge proposals, then Scheme.GibbsScans incremental Gibbs scans over
// the existing clusters, each followed by a parameter update.
//
// Config.M is validated for interface parity but not used: no move opens a
// cluster outside a split proposal.
type RGMSSampler struct {
	b *binding
}

// NewRGMSSampler binds a process and a mixture model. It returns an
// *IncompatibleModelError if either is outside the sampler's declared set.
func NewRGMSSampler(p ProcessModel, m MixtureModel) (*RGMSSampler, error) {
	b, err := bind(SamplerRGMS, p, m)
	if err != nil {
		return nil, err
	}
	return &RGMSSampler{b: b}, nil
}

func (*RGMSSampler) Kind() SamplerKind { return SamplerRGMS }

func (s *RGMSSampler) Infer(x [][]float64, c []int, cfg Config) (*Trace, error) {
	return infer(s.b, x, c, cfg, func(ch *chain) error {
		for t := 0; t < ch.scheme.SplitMergeMoves; t++ {
			if err := ch.splitMerge(); err != nil {
				return err
			}
		}
		for t := 0; t < ch.scheme.GibbsScans; t++ {
			if err := ch.incrementalScan(); err != nil {
				return err
			}
			if err := ch.resampleParams(); err != nil {
				return err
			}
		}
		return nil
	})
}

// incrementalScan reassigns every non-singleton observation among the
// occupied clusters. Singletons stay put, so the set of clusters is fixed.
func (ch *chain) incrementalScan() error {
	proc := ch.b.process
	for i := 0; i < ch.n; i++ {
		old := ch.assign[i]
		if ch.arena.slots[old].size() == 1 {
			continue
		}
		xi := ch.x[i]
		ch.arena.remove(old, i, xi)

		ch.cand = ch.arena.occupied(ch.cand[:0])
		logw := ch.logw[:0]
		for _, slot := range ch.cand {
			cl := ch.arena.slots[slot]
			logw = append(logw, proc.LogExistingMass(cl.size())+cl.param.LogProb(xi))
		}
		ch.logw = logw

		pick, err := ch.cat.draw(ch.rng, logw)
		if err != nil {
			return fmt.Errorf("imm: observation %d: %w", i, err)
		}
		slot := ch.cand[pick]
		ch.arena.add(slot, i, xi)
		ch.assign[i] = slot
	}
	return nil
}

// restricted is a two-cluster configuration of the observations in
// members. members[0] and members[1] are the anchors i and j; they stay on
// sides 0 and 1.
type restricted struct {
	members []int
	side    []int
	stats   [2]*Stats
	params  [2]*Gaussian
}

func (r *restricted) clone() *restricted {
	return &restricted{
		members: r.members,
		side:    append([]int(nil), r.side...),
		stats:   [2]*Stats{r.stats[0].Clone(), r.stats[1].Clone()},
		params:  r.params,
	}
}

// scan is one restricted Gibbs scan of the non-anchor members followed by
// one parameter transition per side. With target nil every choice is drawn;
// otherwise the scan is forced to target's sides and parameters. When score
// is set it returns the log probability of the choices made.
func (r *restricted) scan(ch *chain, target *restricted, score bool) (float64, error) {
	proc, mix := ch.b.process, ch.b.parametric
	var logq float64
	var lw [2]float64
	for idx := 2; idx < len(r.members); idx++ {
		x := ch.x[r.members[idx]]
		r.stats[r.side[idx]].Remove(x)
		for c := range lw {
			lw[c] = proc.LogExistingMass(r.stats[c].N) + r.params[c].LogProb(x)
		}
		var pick int
		if target != nil {
			pick = target.side[idx]
		} else {
			var err error
			if pick, err = ch.cat.draw(ch.rng, lw[:]); err != nil {
				return 0, fmt.Errorf("imm: restricted scan of observation %d: %w", r.members[idx], err)
			}
		}
		if score {
			logq += logProb(lw[:], pick)
		}
		r.side[idx] = pick
		r.stats[pick].Add(x)
	}

	for c := range r.params {
		var next *Gaussian
		if target != nil {
			next = target.params[c]
		} else {
			var err error
			if next, err = mix.SamplePosterior(r.stats[c], r.params[c], ch.rng); err != nil {
				return 0, err
			}
		}
		if score {
			lt, err := mix.LogTransition(r.stats[c], r.params[c], next)
			if err != nil {
				return 0, err
			}
			logq += lt
		}
		r.params[c] = next
	}
	return logq, nil
}

// launch holds the launch states shared by a split proposal and the merge
// that reverses it.
type launch struct {
	split       *restricted
	merged      *Stats
	mergedParam *Gaussian
}

// newLaunch builds the split launch state for anchors i and j (random
// halves, each side's parameter drawn given its anchor alone, then
// Scheme.SplitScans restricted scans) and then the merge launch parameter (a
// prior draw followed by Scheme.MergeScans transitions). The construction
// depends only on the members, so a split and the merge reversing it share
// it.
func (ch *chain) newLaunch(i, j int) (*launch, error) {
	mix := ch.b.parametric
	bm := ch.arena.slots[ch.assign[i]].members.Clone()
	if cj := ch.assign[j]; cj != ch.assign[i] {
		bm.Or(ch.arena.slots[cj].members)
	}
	bm.Remove(uint32(i))
	bm.Remove(uint32(j))

	members := make([]int, 0, bm.GetCardinality()+2)
	members = append(members, i, j)
	it := bm.Iterator()
	for it.HasNext() {
		members = append(members, int(it.Next()))
	}

	r := &restricted{
		members: members,
		side:    make([]int, len(members)),
		stats:   [2]*Stats{NewStats(ch.dim), NewStats(ch.dim)},
	}
	merged := NewStats(ch.dim)
	for idx, k := range members {
		side := idx
		if idx > 1 {
			side = ch.rng.IntN(2)
		}
		r.side[idx] = side
		r.stats[side].Add(ch.x[k])
		merged.Add(ch.x[k])
	}
	for c := range r.params {
		anchor := NewStats(ch.dim)
		anchor.Add(ch.x[members[c]])
		g, err := mix.SamplePosterior(anchor, nil, ch.rng)
		if err != nil {
			return nil, err
		}
		r.params[c] = g
	}
	for t := 0; t < ch.scheme.SplitScans; t++ {
		if _, err := r.scan(ch, nil, false); err != nil {
			return nil, err
		}
	}

	phi, err := mix.SamplePrior(ch.rng)
	if err != nil {
		return nil, err
	}
	for t := 0; t < ch.scheme.MergeScans; t++ {
		if phi, err = mix.SamplePosterior(merged, phi, ch.rng); err != nil {
			return nil, err
		}
	}
	return &launch{split: r, merged: merged, mergedParam: phi}, nil
}

// logSplitOverMerge returns
//
//	log p(split) q(merged | split) - log p(merged) q(split | merged)
//
// where split is a two-cluster configuration of the launch members reached
// from the split launch with log probability logqSplit, and merged is the
// single-cluster parameter. A split is accepted with this log ratio and the
// reverse merge with its negation.
func (ch *chain) logSplitOverMerge(l *launch, split *restricted, logqSplit float64, merged *Gaussian) (float64, error) {
	proc, mix := ch.b.process, ch.b.parametric

	ci, cj := ch.assign[split.members[0]], ch.assign[split.members[1]]
	var others []int
	for slot, cl := range ch.arena.slots {
		if cl.live && slot != ci && slot != cj {
			others = append(others, cl.size())
		}
	}
	nA, nB := split.stats[0].N, split.stats[1].N
	lr := proc.LogPartition(append(others, nA, nB), ch.n) -
		proc.LogPartition(append(others[:len(others):len(others)], nA+nB), ch.n)

	lr += mix.LogPrior(split.params[0]) + mix.LogPrior(split.params[1]) - mix.LogPrior(merged)

	for idx, k := range split.members {
		x := ch.x[k]
		lr += split.params[split.side[idx]].LogProb(x) - merged.LogProb(x)
	}

	logqMerge, err := mix.LogTransition(l.merged, l.mergedParam, merged)
	if err != nil {
		return 0, err
	}
	return lr + logqMerge - logqSplit, nil
}

// splitMerge makes one split-merge proposal for a uniformly drawn pair of
// distinct observations.
func (ch *chain) splitMerge() error {
	if ch.n < 2 {
		return nil
	}
	i := ch.rng.IntN(ch.n)
	j := ch.rng.IntN(ch.n - 1)
	if j >= i {
		j++
	}

	l, err := ch.newLaunch(i, j)
	if err != nil {
		return err
	}
	if ch.assign[i] == ch.assign[j] {
		return ch.proposeSplit(l)
	}
	return ch.proposeMerge(l)
}

func (ch *chain) proposeSplit(l *launch) error {
	i, j := l.split.members[0], l.split.members[1]
	cl := ch.arena.slots[ch.assign[i]]

	split := l.split.clone()
	logq, err := split.scan(ch, nil, true)
	if err != nil {
		return err
	}
	lr, err := ch.logSplitOverMerge(l, split, logq, cl.param)
	if err != nil {
		return err
	}
	accepted := math.Log(ch.rng.Float64()) < lr
	ch.recordMove(MoveSplit, i, j, lr, accepted)
	if accepted {
		ch.applySplit(split)
	}
	return nil
}

func (ch *chain) proposeMerge(l *launch) error {
	i, j := l.split.members[0], l.split.members[1]
	ci, cj := ch.assign[i], ch.assign[j]

	current := ch.currentSplit(l)

	reverse := l.split.clone()
	logq, err := reverse.scan(ch, current, true)
	if err != nil {
		return err
	}

	merged, err := ch.b.parametric.SamplePosterior(l.merged, l.mergedParam, ch.rng)
	if err != nil {
		return err
	}
	lr, err := ch.logSplitOverMerge(l, current, logq, merged)
	if err != nil {
		return err
	}
	lr = -lr
	accepted := math.Log(ch.rng.Float64()) < lr
	ch.recordMove(MoveMerge, i, j, lr, accepted)
	if accepted {
		ch.applyMerge(ci, cj, merged)
	}
	return nil
}

// currentSplit describes the two clusters holding the launch anchors as a
// restricted configuration over the launch members.
func (ch *chain) currentSplit(l *launch) *restricted {
	members := l.split.members
	ci, cj := ch.assign[members[0]], ch.assign[members[1]]
	cur := &restricted{
		members: members,
		side:    make([]int, len(members)),
		stats:   [2]*Stats{ch.arena.slots[ci].stats, ch.arena.slots[cj].stats},
		params:  [2]*Gaussian{ch.arena.slots[ci].param, ch.arena.slots[cj].param},
	}
	for idx, k := range members {
		if ch.assign[k] == cj {
			cur.side[idx] = 1
		}
	}
	return cur
}

// applySplit moves side 0 of split into a new cluster; the original cluster
// keeps side 1.
func (ch *chain) applySplit(split *restricted) {
	from := ch.assign[split.members[0]]
	to := ch.arena.open()
	for idx, k := range split.members {
		if split.side[idx] == 0 {
			ch.move(k, to)
		}
	}
	ch.arena.slots[to].param = split.params[0]
	ch.arena.slots[from].param = split.params[1]
}

// applyMerge moves every member of cj into ci and retires cj.
func (ch *chain) applyMerge(ci, cj int, merged *Gaussian) {
	for _, k := range ch.arena.slots[cj].members.ToArray() {
		ch.move(int(k), ci)
	}
	ch.arena.retire(cj)
	ch.arena.slots[ci].param = merged
}

func (ch *chain) recordMove(kind MoveKind, i, j int, lr float64, accepted bool) {
	switch kind {
	case MoveSplit:
		ch.moves.SplitsProposed++
		if accepted {
			ch.moves.SplitsAccepted++
		}
	case MoveMerge:
		ch.moves.MergesProposed++
		if accepted {
			ch.moves.MergesAccepted++
		}
	}
	ch.metrics.RecordMove(kind, accepted)
	ch.log.LogMove(kind, i, j, lr, accepted)
}
