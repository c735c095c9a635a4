package imm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in, want []int
	}{
		{nil, []int{}},
		{[]int{7}, []int{0}},
		{[]int{5, 5, 2, 9, 2}, []int{0, 0, 1, 2, 1}},
		{[]int{0, 1, 2}, []int{0, 1, 2}},
		{[]int{3, 2, 1, 0}, []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.in), "in=%v", tt.in)
	}
}

func TestSamePartition(t *testing.T) {
	assert.True(t, SamePartition([]int{0, 0, 1}, []int{4, 4, 2}))
	assert.False(t, SamePartition([]int{0, 0, 1}, []int{0, 1, 1}))
	assert.False(t, SamePartition([]int{0, 1, 1}, []int{0, 0, 0}))
	assert.False(t, SamePartition([]int{0, 0, 0}, []int{0, 1, 1}))
	assert.False(t, SamePartition([]int{0}, []int{0, 0}))
}

func TestInitialLabelsAreCompacted(t *testing.T) {
	x, _ := twoBlobs(6, 3)
	b, err := bind(SamplerGibbs, newDP(t, 1), newMixture(t, MixtureCollapsedConjugateGaussian, 2))
	require.NoError(t, err)

	cfg := DefaultConfig()
	applyDefaults(&cfg)
	ch, err := newChain(b, x, []int{40, 40, 7, 40, 7, 1000}, &cfg, newRand(1), NoopLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, ch.arena.active)
	snap := ch.snapshot(0)
	assert.Equal(t, []int{0, 0, 1, 0, 1, 2}, snap.Assignments)
	assert.Empty(t, snap.Params)
}

func TestSnapshotParamsFollowLabels(t *testing.T) {
	x, _ := twoBlobs(7, 3)
	b, err := bind(SamplerGibbs, newDP(t, 1), newMixture(t, MixtureConjugateGaussian, 2))
	require.NoError(t, err)
	cfg := DefaultConfig()
	applyDefaults(&cfg)
	ch, err := newChain(b, x, []int{2, 2, 2, 1, 1, 1}, &cfg, newRand(2), NoopLogger())
	require.NoError(t, err)

	snap := ch.snapshot(3)
	assert.Equal(t, 3, snap.Iteration)
	require.Len(t, snap.Params, 2)
	assert.Same(t, ch.arena.slots[ch.assign[0]].param, snap.Params[0])
	assert.Same(t, ch.arena.slots[ch.assign[5]].param, snap.Params[1])
}
