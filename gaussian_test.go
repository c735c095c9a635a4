package imm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

func TestGaussianLogProbMatchesDistmv(t *testing.T) {
	prec := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})
	mean := []float64{1, -1}
	g, err := NewGaussian(mean, prec)
	require.NoError(t, err)

	cov, err := g.Covariance()
	require.NoError(t, err)
	ref, ok := distmv.NewNormal(mean, cov, nil)
	require.True(t, ok)

	for _, x := range randomPoints(5, 10, 2) {
		assert.InDelta(t, ref.LogProb(x), g.LogProb(x), 1e-9)
	}
}

func TestNewGaussianRejectsIndefinitePrecision(t *testing.T) {
	prec := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err := NewGaussian([]float64{0, 0}, prec)
	assert.ErrorIs(t, err, ErrNumerical)

	_, err = NewGaussian([]float64{0}, identity(2, 1))
	assert.ErrorIs(t, err, ErrNumerical)
}

func TestGaussianJSON(t *testing.T) {
	g, err := NewGaussian([]float64{0.5, -2}, mat.NewSymDense(2, []float64{3, 1, 1, 2}))
	require.NoError(t, err)

	raw, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mean":[0.5,-2],"precision":[[3,1],[1,2]]}`, string(raw))

	var back Gaussian
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, g.Mean, back.Mean)
	assert.True(t, mat.Equal(g.Precision, back.Precision))
	assert.InDelta(t, g.LogProb([]float64{1, 1}), back.LogProb([]float64{1, 1}), 1e-12)

	assert.Error(t, json.Unmarshal([]byte(`{"mean":[1],"precision":[[-1]]}`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"mean":[1,2],"precision":[[1,0]]}`), &back))
}

func TestGaussianClone(t *testing.T) {
	g, err := NewGaussian([]float64{1, 2}, identity(2, 4))
	require.NoError(t, err)
	c := g.Clone()
	c.Mean[0] = 100
	c.Precision.SetSym(0, 0, 1)
	assert.Equal(t, 1.0, g.Mean[0])
	assert.Equal(t, 4.0, g.Precision.At(0, 0))
}
