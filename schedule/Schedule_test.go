package schedule

import (
	"math"
	"testing"
)

func TestLinear(t *testing.T) {
	l, err := NewLinear(10000, 0.2, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		t    int
		want float64
	}{
		{0, 0.2}, {5000, 0.6}, {10000, 1.0}, {20000, 1.0},
	}
	for _, test := range tests {
		if have := l.Value(test.t); math.Abs(have-test.want) > 1e-12 {
			t.Errorf("value(%v): want(%v) have(%v)", test.t, test.want, have)
		}
	}

	if _, err := NewLinear(0, 0, 1); err == nil {
		t.Error("expected error for zero horizon")
	}
}

func TestExponentialDecay(t *testing.T) {
	e, err := NewExponentialDecay(1.0, 0.5, 100, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	if have := e.Unclamped(100); math.Abs(have-0.5) > 1e-12 {
		t.Errorf("unclamped at decay steps: want(0.5) have(%v)", have)
	}
	if have := e.Value(100); math.Abs(have-0.5) > 1e-12 {
		t.Errorf("value at decay steps: want(0.5) have(%v)", have)
	}
	if have := e.Value(50); math.Abs(have-math.Sqrt(0.5)) > 1e-12 {
		t.Errorf("value between decays: want(%v) have(%v)", math.Sqrt(0.5),
			have)
	}
	for _, step := range []int{1000, 100000, math.MaxInt32} {
		if have := e.Value(step); have != 0.1 {
			t.Errorf("value(%v): want exactly(0.1) have(%v)", step, have)
		}
	}

	if _, err := NewExponentialDecay(1, 0, 10, 0.1); err == nil {
		t.Error("expected error for zero rate")
	}
	if _, err := NewExponentialDecay(1, 0.5, 0, 0.1); err == nil {
		t.Error("expected error for zero steps")
	}
}
