package imm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// categorical draws indices from unnormalized log weights. The scratch
// buffer is reused across draws.
type categorical struct {
	w []float64
}

// draw returns index k with probability exp(logw[k]) / sum exp(logw).
// logw is not modified. A vector with no finite weight, or containing NaN,
// is reported as ErrNumerical.
func (c *categorical) draw(rng *rand.Rand, logw []float64) (int, error) {
	if len(logw) == 0 {
		return 0, fmt.Errorf("imm: no candidates: %w", ErrNumerical)
	}
	if floats.HasNaN(logw) {
		return 0, fmt.Errorf("imm: NaN log weight: %w", ErrNumerical)
	}
	top := floats.Max(logw)
	if math.IsInf(top, 0) {
		return 0, fmt.Errorf("imm: all candidate weights are zero (max log weight %v): %w", top, ErrNumerical)
	}

	if cap(c.w) < len(logw) {
		c.w = make([]float64, len(logw))
	}
	w := c.w[:len(logw)]
	copy(w, logw)
	floats.AddConst(-top, w)
	var total float64
	for k, v := range w {
		total += math.Exp(v)
		w[k] = total
	}

	u := rng.Float64() * total
	for k, cum := range w {
		if u < cum {
			return k, nil
		}
	}
	return len(w) - 1, nil
}

// logProb returns log(exp(logw[k]) / sum exp(logw)).
func logProb(logw []float64, k int) float64 {
	return logw[k] - floats.LogSumExp(logw)
}
