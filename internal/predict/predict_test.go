package predict

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

func linearTable(t *testing.T, n int) *dataset.Table {
	t.Helper()
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		x1, x2 := float64(i), float64((i*7)%5)
		rows[i] = []string{fmt.Sprint(x1), fmt.Sprint(x2), fmt.Sprint(3 + 2*x1 - 0.5*x2), "k"}
	}
	tbl, err := dataset.FromRecords("lin.csv", []string{"x1", "x2", "y", "label"}, rows)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return tbl
}

func TestSplitSizes(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10, 11, 100} {
		train, test := Split(n, 0.3, 42)
		wantTest := int(math.Ceil(0.3 * float64(n)))
		if len(test) != wantTest || len(train) != n-wantTest {
			t.Fatalf("n=%d: train=%d test=%d", n, len(train), len(test))
		}
		seen := map[int]bool{}
		for _, r := range append(append([]int{}, train...), test...) {
			if r < 0 || r >= n || seen[r] {
				t.Fatalf("n=%d: bad or repeated row %d", n, r)
			}
			seen[r] = true
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	a1, b1 := Split(50, 0.3, 42)
	a2, b2 := Split(50, 0.3, 42)
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("train differs at %d", i)
		}
	}
	for i := range b1 {
		if b1[i] != b2[i] {
			t.Fatalf("test differs at %d", i)
		}
	}
	_, other := Split(50, 0.3, 7)
	same := true
	for i := range other {
		if other[i] != b1[i] {
			same = false
		}
	}
	if same {
		t.Fatalf("different seeds produced the same test partition")
	}
}

func TestLinearRegressionExactFit(t *testing.T) {
	res, err := Run(linearTable(t, 20), ModelSpec{Features: []string{"x1", "x2"}, Target: "y", Kind: Linear}, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.TestRows) != 6 || len(res.TrainRows) != 14 {
		t.Fatalf("split = %d/%d", len(res.TrainRows), len(res.TestRows))
	}
	if res.MSE > 1e-9 {
		t.Fatalf("MSE = %v, want ~0 on noiseless linear data", res.MSE)
	}
	if res.Table.Rows() != 6 || res.Table.Width() != 3 {
		t.Fatalf("table shape = %dx%d", res.Table.Rows(), res.Table.Width())
	}
	if res.Figure.Title != "Predictions vs Actual" || len(res.Figure.Traces[0].X) != 6 {
		t.Fatalf("figure = %+v", res.Figure)
	}
}

func TestLinearRegressionCollinear(t *testing.T) {
	X := [][]float64{{1, 2}, {2, 4}, {3, 6}, {4, 8}}
	y := []float64{3, 5, 7, 9}
	m := &LinearRegression{}
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := m.Predict([][]float64{{5, 10}})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pred[0]-11) > 1e-8 {
		t.Fatalf("pred = %v, want 11", pred[0])
	}
}

func TestDecisionTreeFitsTrainingData(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{10, 10, 20, 20, 35, 35}
	m := &DecisionTree{}
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, _ := m.Predict(X)
	if MSE(y, pred) != 0 {
		t.Fatalf("training MSE = %v, want 0", MSE(y, pred))
	}
	if m.Leaves() != 3 {
		t.Fatalf("leaves = %d, want 3", m.Leaves())
	}
	got, _ := m.Predict([][]float64{{2.4}, {2.6}})
	if got[0] != 10 || got[1] != 20 {
		t.Fatalf("midpoint threshold: got %v", got)
	}
}

func TestDecisionTreeAdjacentFloats(t *testing.T) {
	lo := 1.0000000000000002
	hi := math.Nextafter(lo, 2)
	X := [][]float64{{lo}, {hi}}
	y := []float64{0, 1}
	m := &DecisionTree{}
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Leaves() != 2 {
		t.Fatalf("leaves = %d, want 2", m.Leaves())
	}
	pred, _ := m.Predict(X)
	if pred[0] != 0 || pred[1] != 1 {
		t.Fatalf("pred = %v, want [0 1]", pred)
	}
}

func TestDecisionTreeLimits(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	stump := &DecisionTree{MaxDepth: 1}
	if err := stump.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if stump.Depth() != 1 || stump.Leaves() != 2 {
		t.Fatalf("depth=%d leaves=%d", stump.Depth(), stump.Leaves())
	}
	wide := &DecisionTree{MinSamplesLeaf: 4}
	if err := wide.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if wide.Leaves() != 2 {
		t.Fatalf("leaves = %d, want 2 with min leaf 4", wide.Leaves())
	}
}

func TestRunTree(t *testing.T) {
	res, err := Run(linearTable(t, 30), ModelSpec{Features: []string{"x1"}, Target: "y", Kind: Tree}, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Predicted) != 9 || math.IsNaN(res.MSE) {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	tbl := linearTable(t, 10)
	var tm *dataset.TypeMismatchError
	if _, err := Run(tbl, ModelSpec{Features: []string{"label"}, Target: "y", Kind: Linear}, DefaultOptions()); !errors.As(err, &tm) {
		t.Fatalf("text feature: err = %v", err)
	}
	var mc *dataset.MissingColumnError
	if _, err := Run(tbl, ModelSpec{Features: []string{"x1"}, Target: "z", Kind: Linear}, DefaultOptions()); !errors.As(err, &mc) {
		t.Fatalf("missing target: err = %v", err)
	}
	var es *dataset.EmptySelectionError
	if _, err := Run(tbl, ModelSpec{Target: "y", Kind: Linear}, DefaultOptions()); !errors.As(err, &es) {
		t.Fatalf("no features: err = %v", err)
	}
	holes, _ := dataset.FromRecords("h", []string{"x", "y"}, [][]string{{"1", "2"}, {"", "3"}, {"3", "4"}})
	if _, err := Run(holes, ModelSpec{Features: []string{"x"}, Target: "y", Kind: Tree}, DefaultOptions()); !errors.Is(err, ErrMissingValues) {
		t.Fatalf("nulls: err = %v", err)
	}
	one, _ := dataset.FromRecords("o", []string{"x", "y"}, [][]string{{"1", "2"}})
	if _, err := Run(one, ModelSpec{Features: []string{"x"}, Target: "y", Kind: Tree}, DefaultOptions()); !errors.Is(err, ErrTooFewRows) {
		t.Fatalf("one row: err = %v", err)
	}
}

func TestParseKindAndMSE(t *testing.T) {
	if k, _ := ParseKind("Linear Regression"); k != Linear {
		t.Fatalf("k = %q", k)
	}
	if k, _ := ParseKind("decision tree"); k != Tree {
		t.Fatalf("k = %q", k)
	}
	if _, err := ParseKind("svm"); err == nil {
		t.Fatalf("expected error")
	}
	if got := MSE([]float64{1, 2, 3}, []float64{1, 3, 5}); math.Abs(got-5.0/3) > 1e-12 {
		t.Fatalf("MSE = %v", got)
	}
	if FormatMSE(0.25) != "Mean Squared Error: 0.25" {
		t.Fatalf("FormatMSE = %q", FormatMSE(0.25))
	}
}
