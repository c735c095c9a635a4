package imm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRandIsDeterministic(t *testing.T) {
	a, b := newRand(42), newRand(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, newRand(1).Uint64(), newRand(2).Uint64())
}

func TestDeriveSeedSeparatesStreams(t *testing.T) {
	seen := make(map[uint64]bool)
	for parent := uint64(0); parent < 4; parent++ {
		for stream := uint64(0); stream < 64; stream++ {
			s := deriveSeed(parent, stream)
			assert.False(t, seen[s], "parent %d stream %d", parent, stream)
			seen[s] = true
		}
	}
	assert.Equal(t, deriveSeed(9, 3), deriveSeed(9, 3))
	assert.NotEqual(t, deriveSeed(2, 0), deriveSeed(0, 2))
	assert.NotEqual(t, deriveSeed(3, 0), deriveSeed(0, 1))
}

func TestResolveRand(t *testing.T) {
	cfg := Config{Seed: 77}
	rng, seed := resolveRand(&cfg)
	assert.Equal(t, uint64(77), seed)
	assert.Equal(t, newRand(77).Uint64(), rng.Uint64())

	cfg = Config{}
	_, seed = resolveRand(&cfg)
	assert.NotZero(t, seed)

	own := newRand(5)
	cfg = Config{Seed: 77, Rand: own}
	rng, seed = resolveRand(&cfg)
	assert.Same(t, own, rng)
	assert.Zero(t, seed)
}
