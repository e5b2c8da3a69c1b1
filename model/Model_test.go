package model

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/hra/experiment/checkpointer"
	"github.com/samuelfneumann/hra/network"
	"github.com/samuelfneumann/hra/solver"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	features = 3
	actions  = 2
	heads    = 2
	batch    = 4
)

func testConfig(t *testing.T) Config {
	t.Helper()
	adam, err := solver.NewDefaultAdam(0.01)
	if err != nil {
		t.Fatal(err)
	}
	c := DefaultConfig()
	c.HiddenSizes = []int{16}
	c.Activations = []*network.Activation{network.TanH()}
	c.Solver = adam
	return c
}

func newModel(t *testing.T, name string, store checkpointer.Store) *Model {
	t.Helper()
	m, err := New(name, features, actions, heads, batch, testConfig(t), CPU(),
		store)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func states() *mat.Dense {
	return mat.NewDense(batch, features, []float64{
		0.1, 0.2, 0.3,
		-0.5, 0.0, 0.5,
		1.0, -1.0, 0.25,
		0.0, 0.0, 0.0,
	})
}

func TestNewInvalid(t *testing.T) {
	store := checkpointer.NewMemoryStore()
	if _, err := New("m", features, actions, heads, 1, testConfig(t), CPU(),
		store); err == nil {
		t.Error("expected error for batch size 1")
	}
	if _, err := New("m", features, actions, heads, batch, testConfig(t),
		CPU(), nil); err == nil {
		t.Error("expected error for nil store")
	}

	c := testConfig(t)
	c.Solver = nil
	if _, err := New("m", features, actions, heads, batch, c, CPU(),
		store); err == nil {
		t.Error("expected error for missing solver")
	}
}

func TestPredict(t *testing.T) {
	m := newModel(t, "predict", checkpointer.NewMemoryStore())

	action, q, combined, err := m.Predict(mat.NewVecDense(features,
		[]float64{0.1, 0.2, 0.3}))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(q) != heads {
		t.Fatalf("q heads: want(%v) have(%v)", heads, len(q))
	}

	sum := make([]float64, actions)
	for _, head := range q {
		if len(head) != actions {
			t.Fatalf("q actions: want(%v) have(%v)", actions, len(head))
		}
		floats.Add(sum, head)
	}
	if !floats.EqualApprox(sum, combined, 1e-12) {
		t.Errorf("combined: want(%v) have(%v)", sum, combined)
	}
	if action != floats.MaxIdx(combined) {
		t.Errorf("action: want(%v) have(%v)", floats.MaxIdx(combined), action)
	}

	if _, _, _, err := m.Predict(mat.NewVecDense(2, nil)); err == nil {
		t.Error("expected error for wrong state size")
	}
}

func TestPredictBatchMatchesPredict(t *testing.T) {
	m := newModel(t, "batch", checkpointer.NewMemoryStore())
	s := states()

	values, err := m.PredictBatch(s)
	if err != nil {
		t.Fatalf("predictBatch: %v", err)
	}
	for i := 0; i < batch; i++ {
		_, q, _, err := m.Predict(s.RowView(i))
		if err != nil {
			t.Fatal(err)
		}
		for h := range q {
			if !floats.EqualApprox(q[h], values[h].RawRowView(i), 1e-12) {
				t.Errorf("row %v head %v: want(%v) have(%v)", i, h, q[h],
					values[h].RawRowView(i))
			}
		}
	}

	if _, err := m.PredictBatch(mat.NewDense(batch-1, features,
		nil)); err == nil {
		t.Error("expected error for wrong batch size")
	}
}

func TestFitReducesLoss(t *testing.T) {
	m := newModel(t, "fit", checkpointer.NewMemoryStore())
	s := states()
	taken := []int{0, 1, 1, 0}
	targets := mat.NewDense(heads, batch, []float64{
		1, -1, 0.5, 0,
		0, 2, -0.5, 1,
	})

	first, err := m.Fit(s, taken, targets, nil, 1)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	last := first
	for i := 0; i < 300; i++ {
		if last, err = m.Fit(s, taken, targets, nil, i+2); err != nil {
			t.Fatalf("fit: %v", err)
		}
	}
	if last >= first/2 {
		t.Errorf("loss did not decrease: first(%v) last(%v)", first, last)
	}

	// Acting and batch predictions see the trained weights
	values, err := m.PredictBatch(s)
	if err != nil {
		t.Fatal(err)
	}
	_, q, _, err := m.Predict(s.RowView(0))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(q[0][0]-values[0].At(0, 0)) > 1e-12 {
		t.Errorf("single and batch predictions disagree after fit")
	}
	if math.Abs(values[0].At(0, taken[0])-targets.At(0, 0)) > 0.5 {
		t.Errorf("prediction far from target after fitting: want(%v) "+
			"have(%v)", targets.At(0, 0), values[0].At(0, taken[0]))
	}
}

func TestFitZeroWeightsLeavesModelUnchanged(t *testing.T) {
	m := newModel(t, "weights", checkpointer.NewMemoryStore())
	before := m.Weights()

	targets := mat.NewDense(heads, batch, []float64{
		5, 5, 5, 5,
		-5, -5, -5, -5,
	})
	loss, err := m.Fit(states(), []int{0, 0, 1, 1}, targets,
		make([]float64, batch), 1)
	if err != nil {
		t.Fatal(err)
	}
	if loss != 0 {
		t.Errorf("loss with zero weights: want(0) have(%v)", loss)
	}

	after := m.Weights()
	for i := range before {
		if !floats.Equal(before[i], after[i]) {
			t.Fatalf("learnable %v changed with zero sample weights", i)
		}
	}
}

func TestFitInvalid(t *testing.T) {
	m := newModel(t, "invalid", checkpointer.NewMemoryStore())
	targets := mat.NewDense(heads, batch, nil)

	if _, err := m.Fit(states(), []int{0, 1}, targets, nil, 1); err == nil {
		t.Error("expected error for wrong number of actions")
	}
	if _, err := m.Fit(states(), []int{0, 1, 2, 0}, targets, nil,
		1); err == nil {
		t.Error("expected error for out of range action")
	}
	if _, err := m.Fit(states(), []int{0, 1, 1, 0}, mat.NewDense(1, batch,
		nil), nil, 1); err == nil {
		t.Error("expected error for wrong target shape")
	}
	if _, err := m.Fit(states(), []int{0, 1, 1, 0}, targets, []float64{1},
		1); err == nil {
		t.Error("expected error for wrong number of weights")
	}
}

func TestReplace(t *testing.T) {
	store := checkpointer.NewMemoryStore()
	eval := newModel(t, "eval", store)
	target := newModel(t, "target", store)
	state := mat.NewVecDense(features, []float64{0.3, -0.2, 0.9})

	// Move eval away from its initialization first
	targets := mat.NewDense(heads, batch, []float64{
		1, 1, 1, 1,
		2, 2, 2, 2,
	})
	for i := 0; i < 5; i++ {
		if _, err := eval.Fit(states(), []int{0, 1, 0, 1}, targets, nil,
			i); err != nil {
			t.Fatal(err)
		}
	}

	if err := target.Replace(eval); err != nil {
		t.Fatalf("replace: %v", err)
	}
	_, want, _, err := eval.Predict(state)
	if err != nil {
		t.Fatal(err)
	}
	_, have, _, err := target.Predict(state)
	if err != nil {
		t.Fatal(err)
	}
	for h := range want {
		if !floats.EqualApprox(want[h], have[h], 1e-12) {
			t.Errorf("head %v: want(%v) have(%v)", h, want[h], have[h])
		}
	}

	// Training eval further does not move target
	if _, err := eval.Fit(states(), []int{0, 1, 0, 1}, targets, nil,
		6); err != nil {
		t.Fatal(err)
	}
	_, after, _, err := target.Predict(state)
	if err != nil {
		t.Fatal(err)
	}
	for h := range have {
		if !floats.Equal(have[h], after[h]) {
			t.Errorf("target changed after training eval")
		}
	}
}

func TestSaveLoadNetwork(t *testing.T) {
	store := checkpointer.NewMemoryStore()
	saved := newModel(t, "agent_eval", store)
	state := mat.NewVecDense(features, []float64{0.5, 0.5, -0.5})

	if err := saved.SaveNetwork(); err != nil {
		t.Fatalf("saveNetwork: %v", err)
	}

	loaded := newModel(t, "agent_eval", store)
	if err := loaded.LoadNetwork(); err != nil {
		t.Fatalf("loadNetwork: %v", err)
	}

	_, want, _, err := saved.Predict(state)
	if err != nil {
		t.Fatal(err)
	}
	_, have, _, err := loaded.Predict(state)
	if err != nil {
		t.Fatal(err)
	}
	for h := range want {
		if !floats.EqualApprox(want[h], have[h], 1e-12) {
			t.Errorf("head %v after load: want(%v) have(%v)", h, want[h],
				have[h])
		}
	}

	missing := newModel(t, "never_saved", store)
	if err := missing.LoadNetwork(); !errors.Is(err, checkpointer.ErrNotFound) {
		t.Errorf("load of missing checkpoint: want ErrNotFound have(%v)", err)
	}
}

type failingStore struct{}

func (failingStore) Save(string, []byte) error {
	return errors.New("disk full")
}

func (failingStore) Load(string) ([]byte, error) {
	return nil, errors.New("disk unreadable")
}

func TestCheckpointErrorsSurface(t *testing.T) {
	m := newModel(t, "failing", failingStore{})
	if err := m.SaveNetwork(); err == nil {
		t.Error("expected save error to be surfaced")
	}
	if err := m.LoadNetwork(); err == nil {
		t.Error("expected load error to be surfaced")
	}
}
