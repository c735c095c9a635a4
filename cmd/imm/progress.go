package main

import (
	"time"

	"github.com/TrevorS/imm"
	"github.com/cheggaaa/pb/v3"
)

// progress advances a terminal bar on every iteration of every chain.
type progress struct {
	imm.BasicMetricsCollector
	bar *pb.ProgressBar
}

func newProgress(total int) *progress {
	return &progress{bar: pb.StartNew(total)}
}

func (p *progress) RecordIteration(s imm.SamplerKind, iter, clusters int, d time.Duration) {
	p.BasicMetricsCollector.RecordIteration(s, iter, clusters, d)
	p.bar.Increment()
}

func (p *progress) finish() {
	p.bar.Finish()
}
