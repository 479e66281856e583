// Package predict fits regression models on a seeded train/test split.
package predict

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/chart"
	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

// Kind names a regression model.
type Kind string

const (
	Linear Kind = "linear"
	Tree   Kind = "tree"
)

// ParseKind accepts the model names shown in the UI as well as the short forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "linear regression", "ols":
		return Linear, nil
	case "tree", "decision tree", "cart":
		return Tree, nil
	}
	return "", fmt.Errorf("unsupported model %q (use linear|tree)", s)
}

// ModelSpec selects feature columns, the target column and the model.
type ModelSpec struct {
	Features []string `json:"features" yaml:"features"`
	Target   string   `json:"target" yaml:"target"`
	Kind     Kind     `json:"model" yaml:"model"`
}

// Options controls the split and the tree hyper-parameters.
type Options struct {
	TestSize        float64
	Seed            int64
	MaxDepth        int // 0 = unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
}

// DefaultOptions is a 70/30 split with seed 42 and an unpruned tree.
func DefaultOptions() Options {
	return Options{TestSize: 0.3, Seed: 42, MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

var (
	// ErrMissingValues is returned when a selected column has null cells.
	ErrMissingValues = errors.New("input contains missing values")
	// ErrTooFewRows is returned when the split leaves a partition empty.
	ErrTooFewRows = errors.New("not enough rows for a train/test split")
)

// Regressor is a model fit on a feature matrix (rows of samples) and a target.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Result holds test-set predictions and their error.
type Result struct {
	Model     Kind           `json:"model"`
	Features  []string       `json:"features"`
	Target    string         `json:"target"`
	TrainRows []int          `json:"train_rows"`
	TestRows  []int          `json:"test_rows"`
	Actual    []float64      `json:"actual"`
	Predicted []float64      `json:"predicted"`
	MSE       float64        `json:"mse"`
	Table     *dataset.Table `json:"-"`
	Figure    *chart.Figure  `json:"figure"`
}

// Split returns a permutation-based train/test partition of n rows. The test
// partition is the first ceil(testSize*n) entries of a permutation drawn from a
// PRNG seeded with seed, so equal inputs always give equal partitions.
func Split(n int, testSize float64, seed int64) (train, test []int) {
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest > n {
		nTest = n
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest]
}

// New returns an unfitted regressor of the given kind.
func New(kind Kind, opt Options) (Regressor, error) {
	switch kind {
	case Linear:
		return &LinearRegression{}, nil
	case Tree:
		return &DecisionTree{MaxDepth: opt.MaxDepth, MinSamplesSplit: opt.MinSamplesSplit, MinSamplesLeaf: opt.MinSamplesLeaf}, nil
	}
	return nil, fmt.Errorf("unsupported model %q", kind)
}

// Validate checks the selections against t.
func (s ModelSpec) Validate(t *dataset.Table) error {
	if len(s.Features) == 0 {
		return &dataset.EmptySelectionError{What: "feature columns"}
	}
	if s.Target == "" {
		return &dataset.EmptySelectionError{What: "target column"}
	}
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return err
	}
	for _, name := range append(append([]string{}, s.Features...), s.Target) {
		c, err := t.Column(name)
		if err != nil {
			return err
		}
		if !c.DType().Numeric() && c.DType() != dataset.Bool {
			return &dataset.TypeMismatchError{Column: name, Op: "predict", Want: "numeric", Got: c.DType()}
		}
		if n := c.NullCount(); n > 0 {
			return fmt.Errorf("column %q has %d null cells: %w", name, n, ErrMissingValues)
		}
	}
	return nil
}

// Run splits t, fits the selected model on the training rows and scores it on
// the test rows.
func Run(t *dataset.Table, spec ModelSpec, opt Options) (*Result, error) {
	if err := spec.Validate(t); err != nil {
		return nil, err
	}
	spec.Kind, _ = ParseKind(string(spec.Kind))
	if opt.TestSize <= 0 || opt.TestSize >= 1 {
		return nil, fmt.Errorf("test size %v out of range (0, 1)", opt.TestSize)
	}
	train, test := Split(t.Rows(), opt.TestSize, opt.Seed)
	if len(train) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("%d rows: %w", t.Rows(), ErrTooFewRows)
	}
	X, y := matrix(t, spec)
	model, err := New(spec.Kind, opt)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(pick(X, train), pickVec(y, train)); err != nil {
		return nil, fmt.Errorf("fit %s model: %w", spec.Kind, err)
	}
	pred, err := model.Predict(pick(X, test))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	actual := pickVec(y, test)
	res := &Result{
		Model:     spec.Kind,
		Features:  spec.Features,
		Target:    spec.Target,
		TrainRows: train,
		TestRows:  test,
		Actual:    actual,
		Predicted: pred,
		MSE:       MSE(actual, pred),
		Figure:    chart.PredictionFigure(actual, pred),
	}
	rows := make([]int64, len(test))
	for i, r := range test {
		rows[i] = int64(r)
	}
	res.Table, err = dataset.NewTable(t.Name()+" (predictions)",
		dataset.NewIntColumn("row", rows),
		dataset.NewFloatColumn("Actual", actual),
		dataset.NewFloatColumn("Predicted", pred))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// MSE is the mean squared error of predicted against actual.
func MSE(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return math.NaN()
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return sum / float64(len(actual))
}

// FormatMSE renders the error line shown under the predictions.
func FormatMSE(mse float64) string {
	return "Mean Squared Error: " + strconv.FormatFloat(mse, 'f', -1, 64)
}

func matrix(t *dataset.Table, spec ModelSpec) ([][]float64, []float64) {
	feats := make([]*dataset.Column, len(spec.Features))
	for j, f := range spec.Features {
		feats[j], _ = t.Column(f)
	}
	target, _ := t.Column(spec.Target)
	X := make([][]float64, t.Rows())
	y := make([]float64, t.Rows())
	for i := range X {
		X[i] = make([]float64, len(feats))
		for j, c := range feats {
			X[i][j], _ = c.Float(i)
		}
		y[i], _ = target.Float(i)
	}
	return X, y
}

func pick(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, r := range idx {
		out[i] = X[r]
	}
	return out
}

func pickVec(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = v[r]
	}
	return out
}
