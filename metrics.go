package imm

import (
	"sync/atomic"
	"time"
)

// MoveKind names a restricted Gibbs merge-split proposal.
type MoveKind string

const (
	MoveSplit MoveKind = "split"
	MoveMerge MoveKind = "merge"
)

// MetricsCollector receives sampler events. Implementations must be safe for
// concurrent use: RunChains shares one collector across chains.
type MetricsCollector interface {
	// RecordIteration is called after every sweep, warmup included.
	RecordIteration(sampler SamplerKind, iter, clusters int, duration time.Duration)

	// RecordMove is called after every split or merge proposal.
	RecordMove(kind MoveKind, accepted bool)
}

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIteration(SamplerKind, int, int, time.Duration) {}
func (NoopMetricsCollector) RecordMove(MoveKind, bool)                            {}

// BasicMetricsCollector keeps in-memory counters.
type BasicMetricsCollector struct {
	Iterations     atomic.Int64
	IterationNanos atomic.Int64
	LastClusters   atomic.Int64
	Splits         atomic.Int64
	SplitsAccepted atomic.Int64
	Merges         atomic.Int64
	MergesAccepted atomic.Int64
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(_ SamplerKind, _ int, clusters int, duration time.Duration) {
	b.Iterations.Add(1)
	b.IterationNanos.Add(duration.Nanoseconds())
	b.LastClusters.Store(int64(clusters))
}

// RecordMove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMove(kind MoveKind, accepted bool) {
	switch kind {
	case MoveSplit:
		b.Splits.Add(1)
		if accepted {
			b.SplitsAccepted.Add(1)
		}
	case MoveMerge:
		b.Merges.Add(1)
		if accepted {
			b.MergesAccepted.Add(1)
		}
	}
}

// BasicMetricsStats is a point-in-time copy of BasicMetricsCollector.
type BasicMetricsStats struct {
	Iterations     int64
	AvgIterationNs int64
	LastClusters   int64
	Splits         int64
	SplitsAccepted int64
	Merges         int64
	MergesAccepted int64
}

// GetStats returns a snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Iterations:     b.Iterations.Load(),
		LastClusters:   b.LastClusters.Load(),
		Splits:         b.Splits.Load(),
		SplitsAccepted: b.SplitsAccepted.Load(),
		Merges:         b.Merges.Load(),
		MergesAccepted: b.MergesAccepted.Load(),
	}
	if s.Iterations > 0 {
		s.AvgIterationNs = b.IterationNanos.Load() / s.Iterations
	}
	return s
}
