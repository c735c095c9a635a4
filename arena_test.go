package imm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaLifecycle(t *testing.T) {
	a := newArena(1)
	s0 := a.open()
	s1 := a.open()
	assert.Equal(t, 2, a.active)

	a.add(s0, 0, []float64{1})
	a.add(s0, 1, []float64{2})
	a.add(s1, 2, []float64{3})
	assert.Equal(t, []int{s0, s1}, a.occupied(nil))
	assert.Equal(t, []int{2, 1}, a.sizes(nil))
	assert.True(t, a.get(s0).members.Contains(1))

	assert.False(t, a.remove(s0, 0, []float64{1}))
	require.True(t, a.remove(s1, 2, []float64{3}))
	a.retire(s1)
	assert.Nil(t, a.get(s1))
	assert.Equal(t, 1, a.active)
	assert.Equal(t, []int{s0}, a.occupied(nil))

	// Retired slots are reused and come back empty.
	s2 := a.open()
	assert.Equal(t, s1, s2)
	cl := a.get(s2)
	require.NotNil(t, cl)
	assert.Zero(t, cl.size())
	assert.True(t, cl.members.IsEmpty())
	assert.Nil(t, cl.param)
}

func TestArenaRetireEmpty(t *testing.T) {
	a := newArena(2)
	for i := 0; i < 4; i++ {
		a.open()
	}
	a.add(1, 0, []float64{0, 0})
	a.add(3, 1, []float64{1, 1})
	a.retireEmpty()

	assert.Equal(t, 2, a.active)
	assert.Equal(t, []int{1, 3}, a.occupied(nil))
}

func TestArenaInvalidatesPredictive(t *testing.T) {
	m := newMixture(t, MixtureCollapsedConjugateGaussian, 1).(*CollapsedConjugateGaussian)
	a := newArena(1)
	s := a.open()
	a.add(s, 0, []float64{1})
	pred, err := m.Predictive(a.slots[s].stats)
	require.NoError(t, err)
	a.slots[s].pred = pred

	a.add(s, 1, []float64{2})
	assert.Nil(t, a.slots[s].pred)
}
