package expreplay

import (
	"math"
	"testing"

	"github.com/samuelfneumann/hra/timestep"
	"gonum.org/v1/gonum/mat"
)

func transition(id float64, reward float64, terminal bool) timestep.Transition {
	return timestep.NewTransition(
		mat.NewVecDense(2, []float64{id, -id}),
		int(id)%3,
		[]float64{reward, -reward},
		mat.NewVecDense(2, []float64{id + 1, -id - 1}),
		terminal,
	)
}

func newBuffer(t *testing.T, capacity int, alpha float64) *Prioritized {
	t.Helper()
	p, err := NewPrioritized(capacity, 2, 2, alpha, 42)
	if err != nil {
		t.Fatalf("newPrioritized: %v", err)
	}
	return p
}

func TestNewPrioritizedInvalid(t *testing.T) {
	tests := []struct {
		name                            string
		capacity, features, rewardTypes int
		alpha                           float64
	}{
		{"zero capacity", 0, 2, 2, 0.6},
		{"zero features", 4, 0, 2, 0.6},
		{"zero reward types", 4, 2, 0, 0.6},
		{"negative alpha", 4, 2, 2, -0.1},
		{"nan alpha", 4, 2, 2, math.NaN()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewPrioritized(test.capacity, test.features,
				test.rewardTypes, test.alpha, 0)
			if err == nil {
				t.Errorf("expected error for %v", test.name)
			}
		})
	}
}

func TestAddRingBuffer(t *testing.T) {
	capacity := 4
	p := newBuffer(t, capacity, 0.6)

	for i := 0; i < 10; i++ {
		if err := p.Add(transition(float64(i), float64(i), false)); err != nil {
			t.Fatalf("add: %v", err)
		}
		want := i + 1
		if want > capacity {
			want = capacity
		}
		if p.Len() != want {
			t.Errorf("len after %v adds: want(%v) have(%v)", i+1, want, p.Len())
		}
	}

	// After 10 inserts into 4 slots, slots hold ids 8, 9, 6, 7: the oldest
	// entries were overwritten first
	wantIDs := []float64{8, 9, 6, 7}
	for slot, id := range wantIDs {
		tr, _, err := p.At(slot)
		if err != nil {
			t.Fatalf("at: %v", err)
		}
		if tr.State.AtVec(0) != id {
			t.Errorf("slot %v: want id(%v) have(%v)", slot, id,
				tr.State.AtVec(0))
		}
		if tr.Reward[0] != id || tr.Reward[1] != -id {
			t.Errorf("slot %v: want reward(%v) have(%v)", slot,
				[]float64{id, -id}, tr.Reward)
		}
	}
	if p.Newest() != 1 {
		t.Errorf("newest: want(1) have(%v)", p.Newest())
	}
}

func TestAddInvalid(t *testing.T) {
	p := newBuffer(t, 4, 0.6)

	bad := transition(1, 1, false)
	bad.Reward = []float64{1}
	if err := p.Add(bad); err == nil {
		t.Error("expected error for wrong reward size")
	}

	bad = transition(1, 1, false)
	bad.State = mat.NewVecDense(3, nil)
	if err := p.Add(bad); err == nil {
		t.Error("expected error for wrong state size")
	}

	if p.Len() != 0 {
		t.Errorf("invalid adds must not be stored: have len(%v)", p.Len())
	}
}

func TestAddUsesMaxPriority(t *testing.T) {
	p := newBuffer(t, 4, 0.6)
	for i := 0; i < 2; i++ {
		if err := p.Add(transition(float64(i), 0, false)); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.UpdatePriorities([]int{0}, []float64{5.0}); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(transition(2, 0, false)); err != nil {
		t.Fatal(err)
	}

	_, priority, err := p.At(2)
	if err != nil {
		t.Fatal(err)
	}
	if priority != 5.0 {
		t.Errorf("new entry priority: want(5) have(%v)", priority)
	}

	// Lowering the priority later does not lower the max seen so far
	if err := p.UpdatePriorities([]int{0}, []float64{0.5}); err != nil {
		t.Fatal(err)
	}
	if p.MaxPriority() != 5.0 {
		t.Errorf("max priority: want(5) have(%v)", p.MaxPriority())
	}
}

func TestSampleErrors(t *testing.T) {
	p := newBuffer(t, 4, 0.6)

	if _, err := p.Sample(1, 0.4); !IsEmptyBuffer(err) {
		t.Errorf("sample on empty buffer: want empty error have(%v)", err)
	}

	for i := 0; i < 3; i++ {
		if err := p.Add(transition(float64(i), 0, false)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.Sample(4, 0.4); !IsInsufficientSamples(err) {
		t.Errorf("sample larger than occupancy: want insufficient samples "+
			"error have(%v)", err)
	}
	if _, err := p.Sample(3, -1); err == nil {
		t.Error("expected error for negative beta")
	}

	batch, err := p.Sample(3, 0.4)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if batch.Size() != 3 {
		t.Errorf("batch size: want(3) have(%v)", batch.Size())
	}
	if r, c := batch.States.Dims(); r != 3 || c != 2 {
		t.Errorf("states dims: want(3, 2) have(%v, %v)", r, c)
	}
	if r, c := batch.Rewards.Dims(); r != 3 || c != 2 {
		t.Errorf("rewards dims: want(3, 2) have(%v, %v)", r, c)
	}
}

func TestSampleContents(t *testing.T) {
	p := newBuffer(t, 8, 0.6)
	for i := 0; i < 5; i++ {
		if err := p.Add(transition(float64(i), float64(10*i),
			i == 4)); err != nil {
			t.Fatal(err)
		}
	}

	batch, err := p.Sample(5, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	for i, index := range batch.Indices {
		id := float64(index)
		if batch.States.At(i, 0) != id || batch.NextStates.At(i, 0) != id+1 {
			t.Errorf("row %v: states do not match slot %v", i, index)
		}
		if batch.Rewards.At(i, 0) != 10*id {
			t.Errorf("row %v: want reward(%v) have(%v)", i, 10*id,
				batch.Rewards.At(i, 0))
		}
		if batch.Actions[i] != index%3 {
			t.Errorf("row %v: want action(%v) have(%v)", i, index%3,
				batch.Actions[i])
		}
		if batch.Terminal[i] != (index == 4) {
			t.Errorf("row %v: want terminal(%v) have(%v)", i, index == 4,
				batch.Terminal[i])
		}
	}
}

func TestSampleUniformWhenPrioritiesEqual(t *testing.T) {
	size := 5
	p := newBuffer(t, size, 0.6)
	for i := 0; i < size; i++ {
		if err := p.Add(transition(float64(i), 0, false)); err != nil {
			t.Fatal(err)
		}
	}

	draws := 50000
	counts := make([]int, size)
	for i := 0; i < draws/size; i++ {
		batch, err := p.Sample(size, 1.0)
		if err != nil {
			t.Fatal(err)
		}
		for _, w := range batch.Weights {
			if math.Abs(w-1.0) > 1e-12 {
				t.Fatalf("equal priorities must give unit weights: have(%v)",
					w)
			}
		}
		for _, index := range batch.Indices {
			counts[index]++
		}
	}

	want := float64(draws) / float64(size)
	for i, c := range counts {
		if math.Abs(float64(c)-want)/want > 0.05 {
			t.Errorf("slot %v drawn %v times, want about %v", i, c, want)
		}
	}
}

func TestSampleFrequencyIncreasesWithPriority(t *testing.T) {
	frequency := func(priority float64) float64 {
		p := newBuffer(t, 4, 0.6)
		for i := 0; i < 4; i++ {
			if err := p.Add(transition(float64(i), 0, false)); err != nil {
				t.Fatal(err)
			}
		}
		if err := p.UpdatePriorities([]int{0}, []float64{priority}); err != nil {
			t.Fatal(err)
		}

		hits, draws := 0, 0
		for i := 0; i < 2000; i++ {
			batch, err := p.Sample(4, 0.4)
			if err != nil {
				t.Fatal(err)
			}
			for _, index := range batch.Indices {
				if index == 0 {
					hits++
				}
				draws++
			}
		}
		return float64(hits) / float64(draws)
	}

	last := 0.0
	for _, priority := range []float64{0.01, 0.5, 1.0, 4.0, 20.0} {
		f := frequency(priority)
		if f <= last {
			t.Errorf("frequency at priority %v: want > %v have(%v)",
				priority, last, f)
		}
		last = f
	}
}

func TestImportanceWeights(t *testing.T) {
	p := newBuffer(t, 2, 1.0)
	for i := 0; i < 2; i++ {
		if err := p.Add(transition(float64(i), 0, false)); err != nil {
			t.Fatal(err)
		}
	}
	// P(0) = 1/4, P(1) = 3/4
	if err := p.UpdatePriorities([]int{0, 1}, []float64{1, 3}); err != nil {
		t.Fatal(err)
	}

	beta := 0.5
	for i := 0; i < 100; i++ {
		batch, err := p.Sample(2, beta)
		if err != nil {
			t.Fatal(err)
		}
		maxWeight := 0.0
		raw := make([]float64, 2)
		for j, index := range batch.Indices {
			prob := 0.25
			if index == 1 {
				prob = 0.75
			}
			raw[j] = math.Pow(2*prob, -beta)
			maxWeight = math.Max(maxWeight, raw[j])
		}
		for j := range raw {
			want := raw[j] / maxWeight
			if math.Abs(batch.Weights[j]-want) > 1e-9 {
				t.Errorf("weight %v: want(%v) have(%v)", j, want,
					batch.Weights[j])
			}
		}
	}
}

func TestUpdatePrioritiesInvalid(t *testing.T) {
	p := newBuffer(t, 4, 0.6)
	for i := 0; i < 2; i++ {
		if err := p.Add(transition(float64(i), 0, false)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name       string
		indices    []int
		priorities []float64
		check      func(error) bool
	}{
		{"beyond occupancy", []int{2}, []float64{1}, IsIndexOutOfRange},
		{"negative index", []int{-1}, []float64{1}, IsIndexOutOfRange},
		{"zero priority", []int{0}, []float64{0}, IsInvalidPriority},
		{"negative priority", []int{1}, []float64{-2}, IsInvalidPriority},
		{"nan priority", []int{1}, []float64{math.NaN()}, IsInvalidPriority},
		{"inf priority", []int{1}, []float64{math.Inf(1)}, IsInvalidPriority},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := p.UpdatePriorities(test.indices, test.priorities)
			if !test.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	if err := p.UpdatePriorities([]int{0, 1}, []float64{1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}

	// A rejected update leaves earlier entries untouched
	err := p.UpdatePriorities([]int{0, 3}, []float64{7, 7})
	if !IsIndexOutOfRange(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, priority, _ := p.At(0); priority != 1.0 {
		t.Errorf("priority changed by rejected update: have(%v)", priority)
	}
}

func TestSumTree(t *testing.T) {
	s := newSumTree(5)
	values := []float64{1, 0, 2, 3, 4}
	for i, v := range values {
		s.set(i, v)
	}
	if s.total() != 10 {
		t.Errorf("total: want(10) have(%v)", s.total())
	}

	tests := []struct {
		mass float64
		want int
	}{
		{0, 0}, {0.99, 0}, {1.0, 2}, {2.5, 2}, {3.0, 3}, {5.99, 3},
		{6.0, 4}, {9.999, 4}, {10.0, 4}, {12.0, 4},
	}
	for _, test := range tests {
		if have := s.find(test.mass); have != test.want {
			t.Errorf("find(%v): want(%v) have(%v)", test.mass, test.want,
				have)
		}
	}

	s.set(4, 0)
	if s.total() != 6 {
		t.Errorf("total after update: want(6) have(%v)", s.total())
	}
	if have := s.find(6.0); have != 3 {
		t.Errorf("find past total: want(3) have(%v)", have)
	}
}

func BenchmarkSample(b *testing.B) {
	p, err := NewPrioritized(100000, 4, 3, 0.6, 1)
	if err != nil {
		b.Fatal(err)
	}
	state := mat.NewVecDense(4, nil)
	for i := 0; i < p.Capacity(); i++ {
		err := p.Add(timestep.NewTransition(state, 0, []float64{1, 2, 3},
			state, false))
		if err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Sample(32, 0.4); err != nil {
			b.Fatal(err)
		}
	}
}
