package imm

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := bufferLogger(&buf).WithChain(2).WithSampler(SamplerSlice, 9)

	log.LogRunStart(100, 3, ProcessDP, MixtureConjugateGaussian, 50, 25)
	log.LogIteration(4, 7, time.Millisecond)
	log.LogMove(MoveMerge, 1, 8, -2.5, false)
	log.LogRunDone(50, 25, time.Second, nil)
	log.LogRunDone(3, 0, time.Second, errors.New("boom"))

	recs := decodeRecords(t, &buf)
	require.Len(t, recs, 5)
	for _, r := range recs {
		assert.Equal(t, "slice", r["sampler"])
		assert.EqualValues(t, 9, r["seed"])
		assert.EqualValues(t, 2, r["chain"])
	}
	assert.Equal(t, "inference started", recs[0]["msg"])
	assert.EqualValues(t, 100, recs[0]["observations"])
	assert.Equal(t, "dp", recs[0]["process"])
	assert.EqualValues(t, 7, recs[1]["clusters"])
	assert.Equal(t, "merge", recs[2]["move"])
	assert.Equal(t, false, recs[2]["accepted"])
	assert.Equal(t, "INFO", recs[3]["level"])
	assert.Equal(t, "ERROR", recs[4]["level"])
	assert.Equal(t, "boom", recs[4]["error"])
}

func TestNoopLoggerDiscards(t *testing.T) {
	log := NoopLogger()
	assert.False(t, log.Enabled(t.Context(), slog.LevelError))
	log.LogRunStart(1, 1, ProcessMFM, MixtureNonconjugateGaussian, 1, 0)
}

func TestBasicMetricsCollector(t *testing.T) {
	var m BasicMetricsCollector
	assert.Zero(t, m.GetStats().AvgIterationNs)

	m.RecordIteration(SamplerRGMS, 0, 3, 10*time.Nanosecond)
	m.RecordIteration(SamplerRGMS, 1, 2, 30*time.Nanosecond)
	m.RecordMove(MoveSplit, true)
	m.RecordMove(MoveSplit, false)
	m.RecordMove(MoveMerge, true)

	assert.Equal(t, BasicMetricsStats{
		Iterations:     2,
		AvgIterationNs: 20,
		LastClusters:   2,
		Splits:         2,
		SplitsAccepted: 1,
		Merges:         1,
		MergesAccepted: 1,
	}, m.GetStats())
}
