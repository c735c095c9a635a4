package imm

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDPValidation(t *testing.T) {
	for _, alpha := range []float64{0, -1, math.Inf(1), math.NaN()} {
		_, err := NewDP(alpha)
		assert.ErrorIs(t, err, ErrInvalidParameter, "alpha=%v", alpha)
	}
	p, err := NewDP(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, p.Concentration())
}

func TestNewMFMValidation(t *testing.T) {
	for _, v := range [][2]float64{{0, 1}, {1, 0}, {-1, 1}, {1, math.Inf(1)}, {math.NaN(), 1}} {
		_, err := NewMFM(v[0], v[1])
		assert.ErrorIs(t, err, ErrInvalidParameter, "gamma=%v lambda=%v", v[0], v[1])
	}
}

func TestDPMasses(t *testing.T) {
	p := newDP(t, 2)
	assert.InDelta(t, math.Log(3), p.LogExistingMass(3), 1e-12)
	assert.InDelta(t, math.Log(2), p.LogNewMass(4, 10), 1e-12)
}

// The DP partition probability is alpha^k prod Gamma(n_c) / alpha^(n), so
// exp(LogPartition) summed over all partitions is the rising factorial
// Gamma(alpha+n)/Gamma(alpha).
func TestDPLogPartitionNormalizes(t *testing.T) {
	p := newDP(t, 1.7)
	for n := 1; n <= 6; n++ {
		var total float64
		setPartitions(n, func(labels []int) {
			total += math.Exp(p.LogPartition(clusterSizes(labels), n))
		})
		lgN, _ := math.Lgamma(1.7 + float64(n))
		lg0, _ := math.Lgamma(1.7)
		assert.InDelta(t, lgN-lg0, math.Log(total), 1e-9, "n=%d", n)
	}
}

// The MFM partition probability V_n(t) prod gamma^(n_c) is exact, so it sums
// to one over all partitions of n.
func TestMFMLogPartitionNormalizes(t *testing.T) {
	for _, tc := range []struct{ gamma, lambda float64 }{{1, 1}, {0.5, 3}, {2, 0.2}} {
		p := newMFM(t, tc.gamma, tc.lambda)
		for n := 1; n <= 6; n++ {
			var total float64
			setPartitions(n, func(labels []int) {
				total += math.Exp(p.LogPartition(clusterSizes(labels), n))
			})
			assert.InDelta(t, 1, total, 1e-8, "gamma=%v lambda=%v n=%d", tc.gamma, tc.lambda, n)
		}
	}
}

func TestMFMLogVBruteForce(t *testing.T) {
	gamma, lambda := 1.3, 2.0
	for _, tc := range []struct{ n, t int }{{1, 1}, {5, 1}, {5, 3}, {10, 4}, {20, 7}} {
		var sum float64
		for k := max(tc.t, 1); k < 400; k++ {
			kf := float64(k)
			lf1, _ := math.Lgamma(kf + 1)
			lf2, _ := math.Lgamma(kf - float64(tc.t) + 1)
			lr1, _ := math.Lgamma(gamma * kf)
			lr2, _ := math.Lgamma(gamma*kf + float64(tc.n))
			lk, _ := math.Lgamma(kf)
			pk := math.Exp(-lambda + (kf-1)*math.Log(lambda) - lk)
			sum += math.Exp(lf1-lf2+lr1-lr2) * pk
		}
		assert.InDelta(t, math.Log(sum), mfmLogV(tc.n, tc.t, gamma, lambda), 1e-9, "n=%d t=%d", tc.n, tc.t)
	}
}

// Opening a singleton changes the partition probability by exactly the new
// cluster mass: gamma V_n(k+1)/V_n(k), with Gamma(1+gamma)/Gamma(gamma) = gamma.
func TestMFMNewMassMatchesPartitionRatio(t *testing.T) {
	p := newMFM(t, 0.8, 1.5)
	sizes := []int{3, 2}
	n := 6
	withNew := p.LogPartition(append([]int{1}, sizes...), n)
	without := p.LogPartition(sizes, n)
	assert.InDelta(t, withNew-without, p.LogNewMass(len(sizes), n), 1e-10)
}

func TestMFMConcurrentCache(t *testing.T) {
	p := newMFM(t, 1, 1)
	want := mfmLogV(30, 5, 1, 1)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.Equal(t, want, p.logV(30, 5))
			}
		}()
	}
	wg.Wait()
}
