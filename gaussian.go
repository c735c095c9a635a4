package imm

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var log2Pi = math.Log(2 * math.Pi)

// Gaussian is a component parameter: a mean and a precision matrix.
// Values are immutable once built by NewGaussian.
type Gaussian struct {
	Mean      []float64
	Precision *mat.SymDense

	logDet float64
}

// NewGaussian validates the precision and caches its log-determinant.
// It returns ErrNumerical if prec is not positive definite.
func NewGaussian(mean []float64, prec *mat.SymDense) (*Gaussian, error) {
	if prec.SymmetricDim() != len(mean) {
		return nil, fmt.Errorf("imm: precision is %dx%d, mean has length %d: %w",
			prec.SymmetricDim(), prec.SymmetricDim(), len(mean), ErrNumerical)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(prec); !ok {
		return nil, fmt.Errorf("imm: component precision is not positive definite: %w", ErrNumerical)
	}
	return &Gaussian{Mean: mean, Precision: prec, logDet: chol.LogDet()}, nil
}

// LogProb returns the log density of x under N(Mean, Precision^-1).
func (g *Gaussian) LogProb(x []float64) float64 {
	d := len(g.Mean)
	var q float64
	for i := 0; i < d; i++ {
		di := x[i] - g.Mean[i]
		q += g.Precision.At(i, i) * di * di
		for j := i + 1; j < d; j++ {
			q += 2 * g.Precision.At(i, j) * di * (x[j] - g.Mean[j])
		}
	}
	return 0.5 * (g.logDet - float64(d)*log2Pi - q)
}

// Covariance returns Precision^-1.
func (g *Gaussian) Covariance() (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(g.Precision); !ok {
		return nil, fmt.Errorf("imm: component precision is not positive definite: %w", ErrNumerical)
	}
	cov := mat.NewSymDense(len(g.Mean), nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, fmt.Errorf("imm: invert precision: %w", ErrNumerical)
	}
	return cov, nil
}

// Clone returns a deep copy.
func (g *Gaussian) Clone() *Gaussian {
	prec := mat.NewSymDense(len(g.Mean), nil)
	prec.CopySym(g.Precision)
	return &Gaussian{Mean: append([]float64(nil), g.Mean...), Precision: prec, logDet: g.logDet}
}

type gaussianJSON struct {
	Mean      []float64   `json:"mean"`
	Precision [][]float64 `json:"precision"`
}

func (g Gaussian) MarshalJSON() ([]byte, error) {
	d := len(g.Mean)
	rows := make([][]float64, d)
	for i := range rows {
		rows[i] = make([]float64, d)
		for j := range rows[i] {
			rows[i][j] = g.Precision.At(i, j)
		}
	}
	return json.Marshal(gaussianJSON{Mean: g.Mean, Precision: rows})
}

func (g *Gaussian) UnmarshalJSON(data []byte) error {
	var raw gaussianJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d := len(raw.Mean)
	if d == 0 {
		return fmt.Errorf("imm: component mean is empty")
	}
	if len(raw.Precision) != d {
		return fmt.Errorf("imm: precision has %d rows, mean has length %d", len(raw.Precision), d)
	}
	prec := mat.NewSymDense(d, nil)
	for i, row := range raw.Precision {
		if len(row) != d {
			return fmt.Errorf("imm: precision row %d has length %d, want %d", i, len(row), d)
		}
		for j := i; j < d; j++ {
			prec.SetSym(i, j, row[j])
		}
	}
	parsed, err := NewGaussian(raw.Mean, prec)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
