package imm

// snapshot copies the current state with labels 0..k-1 numbered by first
// appearance in observation order. Parameters are shared, not copied; they
// are never mutated once drawn.
func (ch *chain) snapshot(iter int) Sample {
	labelOf := make([]int, len(ch.arena.slots))
	for i := range labelOf {
		labelOf[i] = -1
	}

	s := Sample{Iteration: iter, Assignments: make([]int, ch.n)}
	if ch.b.parametric != nil {
		s.Params = make([]*Gaussian, 0, ch.arena.active)
	}
	next := 0
	for i, slot := range ch.assign {
		l := labelOf[slot]
		if l < 0 {
			l = next
			labelOf[slot] = l
			next++
			if s.Params != nil {
				s.Params = append(s.Params, ch.arena.slots[slot].param)
			}
		}
		s.Assignments[i] = l
	}
	return s
}

// Canonical relabels an assignment so labels are 0..k-1 in order of first
// appearance. Two assignments describe the same partition exactly when their
// canonical forms are equal.
func Canonical(labels []int) []int {
	out := make([]int, len(labels))
	seen := make(map[int]int)
	for i, l := range labels {
		c, ok := seen[l]
		if !ok {
			c = len(seen)
			seen[l] = c
		}
		out[i] = c
	}
	return out
}

// SamePartition reports whether a and b group the observations identically,
// regardless of label values.
func SamePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab := make(map[int]int)
	ba := make(map[int]int)
	for i := range a {
		if l, ok := ab[a[i]]; ok && l != b[i] {
			return false
		}
		if l, ok := ba[b[i]]; ok && l != a[i] {
			return false
		}
		ab[a[i]] = b[i]
		ba[b[i]] = a[i]
	}
	return true
}
