package predict

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an intercept. The solution is
// the minimum-norm least-squares fit, so collinear features are accepted.
type LinearRegression struct {
	Intercept float64
	Coef      []float64
}

// rcond is the relative singular-value cutoff for the effective rank.
const rcond = 1e-12

// Fit solves [1 X]·b ≈ y via SVD.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return errors.New("no training samples")
	}
	if len(y) != n {
		return fmt.Errorf("%d samples but %d targets", n, len(y))
	}
	p := len(X[0])
	a := mat.NewDense(n, p+1, nil)
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("sample %d has %d features, want %d", i, len(row), p)
		}
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
	}
	b := mat.NewDense(n, 1, append([]float64(nil), y...))

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return errors.New("svd factorization failed")
	}
	var beta mat.Dense
	svd.SolveTo(&beta, b, svd.Rank(rcond))
	m.Intercept = beta.At(0, 0)
	m.Coef = make([]float64, p)
	for j := range m.Coef {
		m.Coef[j] = beta.At(j+1, 0)
	}
	return nil
}

// Predict evaluates the fitted hyperplane at each sample.
func (m *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if m.Coef == nil {
		return nil, errors.New("model is not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(m.Coef) {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(row), len(m.Coef))
		}
		v := m.Intercept
		for j, x := range row {
			v += m.Coef[j] * x
		}
		out[i] = v
	}
	return out, nil
}
