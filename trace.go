package imm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Sample is the chain state recorded after one post-warmup iteration.
type Sample struct {
	Iteration int `json:"iteration"`

	// Assignments holds one label per observation. Labels are 0..k-1,
	// numbered by first appearance.
	Assignments []int `json:"assignments"`

	// Params[l] is the component parameter of label l. Empty for collapsed
	// mixtures.
	Params []*Gaussian `json:"params,omitempty"`
}

// NumClusters returns the number of occupied clusters.
func (s *Sample) NumClusters() int {
	k := 0
	for _, l := range s.Assignments {
		k = max(k, l+1)
	}
	return k
}

// MoveStats counts restricted Gibbs merge-split proposals over the whole run,
// warmup included.
type MoveStats struct {
	SplitsProposed int `json:"splits_proposed"`
	SplitsAccepted int `json:"splits_accepted"`
	MergesProposed int `json:"merges_proposed"`
	MergesAccepted int `json:"merges_accepted"`
}

// Trace is the output of one chain: MaxIter - Warmup samples in iteration
// order.
type Trace struct {
	Sampler SamplerKind `json:"sampler"`
	Process ProcessKind `json:"process"`
	Mixture MixtureKind `json:"mixture"`

	// Seed reproduces the run when passed back as Config.Seed. It is 0 when
	// the run used a caller-supplied Config.Rand.
	Seed    uint64 `json:"seed"`
	MaxIter int    `json:"max_iter"`
	Warmup  int    `json:"warmup"`

	Samples []Sample  `json:"samples"`
	Moves   MoveStats `json:"moves"`
}

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.Samples) }

// Assignments returns the label vector of every sample.
func (t *Trace) Assignments() [][]int {
	out := make([][]int, len(t.Samples))
	for i := range t.Samples {
		out[i] = t.Samples[i].Assignments
	}
	return out
}

// NumClusters returns the cluster count of every sample.
func (t *Trace) NumClusters() []int {
	out := make([]int, len(t.Samples))
	for i := range t.Samples {
		out[i] = t.Samples[i].NumClusters()
	}
	return out
}

// zstdMagic is the frame header of a zstd stream.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// WriteJSON encodes the trace as JSON, zstd-compressed when compress is set.
func (t *Trace) WriteJSON(w io.Writer, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(t)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("imm: create zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(t); err != nil {
		enc.Close()
		return fmt.Errorf("imm: encode trace: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("imm: flush zstd writer: %w", err)
	}
	return nil
}

// ReadTrace decodes a trace written by WriteJSON, detecting compression from
// the stream header.
func ReadTrace(r io.Reader) (*Trace, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("imm: create zstd reader: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	var t Trace
	if err := json.NewDecoder(src).Decode(&t); err != nil {
		return nil, fmt.Errorf("imm: decode trace: %w", err)
	}
	return &t, nil
}
