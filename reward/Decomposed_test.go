package reward

import (
	"testing"
)

func TestNewInvalid(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for no reward types")
	}
	if _, err := New([]string{"a", "b", "a"}); err == nil {
		t.Error("expected error for duplicate reward types")
	}
}

func TestVectorOrderIndependentOfCallOrder(t *testing.T) {
	forward, err := New([]string{"b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	reverse, err := New([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}

	if err := forward.Add("b", 1); err != nil {
		t.Fatal(err)
	}
	if err := forward.Add("a", 2); err != nil {
		t.Fatal(err)
	}
	if err := reverse.Add("a", 2); err != nil {
		t.Fatal(err)
	}
	if err := reverse.Add("b", 1); err != nil {
		t.Fatal(err)
	}

	want := []float64{2, 1}
	for _, d := range []*Decomposed{forward, reverse} {
		v := d.Vector()
		if len(v) != len(want) || v[0] != want[0] || v[1] != want[1] {
			t.Errorf("vector: want(%v) have(%v)", want, v)
		}
	}
	if i, _ := forward.Ordinal("a"); i != 0 {
		t.Errorf("ordinal of a: want(0) have(%v)", i)
	}
}

func TestAccumulation(t *testing.T) {
	d, err := New([]string{"survive", "angle"})
	if err != nil {
		t.Fatal(err)
	}

	steps := [][]struct {
		rewardType string
		value      float64
	}{
		{{"survive", 1}, {"angle", 0.5}, {"angle", 0.5}},
		{{"survive", 1}, {"angle", -2}},
	}
	for _, step := range steps {
		d.ClearStep()
		for _, r := range step {
			if err := d.Add(r.rewardType, r.value); err != nil {
				t.Fatal(err)
			}
		}
	}

	if have := d.Step("angle"); have != -2 {
		t.Errorf("step angle: want(-2) have(%v)", have)
	}
	if have := d.Episode("angle"); have != -1 {
		t.Errorf("episode angle: want(-1) have(%v)", have)
	}
	if have := d.Episode("survive"); have != 2 {
		t.Errorf("episode survive: want(2) have(%v)", have)
	}
	if have := d.Total(); have != 1 {
		t.Errorf("total: want(1) have(%v)", have)
	}

	if err := d.Add("unknown", 1); err == nil {
		t.Error("expected error for unknown reward type")
	}
	if have := d.Total(); have != 1 {
		t.Errorf("rejected reward changed total: have(%v)", have)
	}
}

func TestClear(t *testing.T) {
	d, err := New([]string{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Add("x", 3); err != nil {
		t.Fatal(err)
	}

	d.ClearStep()
	for i, v := range d.Vector() {
		if v != 0 {
			t.Errorf("step %v after ClearStep: want(0) have(%v)", i, v)
		}
	}
	if d.Episode("x") != 3 || d.Total() != 3 {
		t.Errorf("ClearStep must not clear episode accumulators")
	}

	d.ClearEpisode()
	if d.Total() != 0 {
		t.Errorf("total after ClearEpisode: want(0) have(%v)", d.Total())
	}
	for i, v := range d.EpisodeVector() {
		if v != 0 {
			t.Errorf("episode %v after ClearEpisode: want(0) have(%v)", i, v)
		}
	}
}
