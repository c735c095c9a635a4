package imm

import "github.com/RoaringBitmap/roaring/v2"

// cluster is one occupied slot of the arena.
type cluster struct {
	live    bool
	members *roaring.Bitmap
	stats   *Stats

	// param is the explicit component parameter (parametric mixtures only).
	param *Gaussian
	// pred caches the posterior predictive (collapsed mixtures only); nil
	// whenever membership changed since it was computed.
	pred Predictive
}

func (c *cluster) size() int { return c.stats.N }

// arena stores clusters in reusable slots. Slot indices are internal
// identifiers; public labels are produced by snapshot.
type arena struct {
	dim    int
	slots  []*cluster
	free   []int
	active int
}

func newArena(dim int) *arena {
	return &arena{dim: dim}
}

// open returns an empty slot, reusing the most recently retired one.
func (a *arena) open() int {
	a.active++
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[slot].live = true
		return slot
	}
	a.slots = append(a.slots, &cluster{
		live:    true,
		members: roaring.New(),
		stats:   NewStats(a.dim),
	})
	return len(a.slots) - 1
}

// get returns the cluster in slot, or nil if the slot is retired.
func (a *arena) get(slot int) *cluster {
	c := a.slots[slot]
	if !c.live {
		return nil
	}
	return c
}

func (a *arena) add(slot, i int, x []float64) {
	c := a.slots[slot]
	c.members.Add(uint32(i))
	c.stats.Add(x)
	c.pred = nil
}

// remove drops observation i from slot and reports whether the slot is now
// empty. Empty slots stay allocated until retire is called.
func (a *arena) remove(slot, i int, x []float64) bool {
	c := a.slots[slot]
	c.members.Remove(uint32(i))
	c.stats.Remove(x)
	c.pred = nil
	return c.stats.N == 0
}

// retire returns an empty slot to the free list.
func (a *arena) retire(slot int) {
	c := a.slots[slot]
	c.live = false
	c.members.Clear()
	c.stats.Reset()
	c.param = nil
	c.pred = nil
	a.free = append(a.free, slot)
	a.active--
}

// retireEmpty retires every allocated slot without members.
func (a *arena) retireEmpty() {
	for slot, c := range a.slots {
		if c.live && c.stats.N == 0 {
			a.retire(slot)
		}
	}
}

// occupied appends the live slot indices in ascending order to dst.
func (a *arena) occupied(dst []int) []int {
	for slot, c := range a.slots {
		if c.live {
			dst = append(dst, slot)
		}
	}
	return dst
}

// sizes appends the size of every live slot to dst.
func (a *arena) sizes(dst []int) []int {
	for _, c := range a.slots {
		if c.live {
			dst = append(dst, c.size())
		}
	}
	return dst
}
