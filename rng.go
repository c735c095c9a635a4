package imm

import "math/rand/v2"

// newRand returns the deterministic generator for seed. Both PCG words are
// derived from the seed so nearby seeds give unrelated streams.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(deriveSeed(seed, 0), deriveSeed(seed, 1)))
}

// resolveRand returns the generator for one Infer call and the seed it was
// built from. cfg.Rand wins when set (the seed is then unknown and reported
// as 0); cfg.Seed == 0 draws a fresh seed from the runtime's source.
func resolveRand(cfg *Config) (*rand.Rand, uint64) {
	if cfg.Rand != nil {
		return cfg.Rand, 0
	}
	seed := cfg.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}
	return newRand(seed), seed
}

// golden is the SplitMix64 increment.
const golden = 0x9e3779b97f4a7c15

// mix64 is the SplitMix64 finalizer, a bijection on uint64.
func mix64(x uint64) uint64 {
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// deriveSeed mixes a parent seed and a stream identifier into a new seed.
// Distinct streams of one parent never collide.
func deriveSeed(parent, stream uint64) uint64 {
	return mix64(mix64(parent+golden) + (stream+1)*golden)
}

// deriveRand creates an independent stream for a block or chain.
func deriveRand(parent, stream uint64) *rand.Rand {
	return newRand(deriveSeed(parent, stream))
}
