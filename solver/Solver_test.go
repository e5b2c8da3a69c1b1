package solver

import (
	"encoding/json"
	"testing"
)

func TestSolverJSON(t *testing.T) {
	adam, err := NewDefaultAdam(0.001)
	if err != nil {
		t.Fatal(err)
	}
	rms, err := NewDefaultRMSProp(0.01)
	if err != nil {
		t.Fatal(err)
	}
	vanilla, err := NewVanilla(0.1, 1, 5)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []*Solver{adam, rms, vanilla} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s.Type, err)
		}

		var decoded Solver
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %v: %v", s.Type, err)
		}
		if decoded.Type != s.Type {
			t.Errorf("type: want(%v) have(%v)", s.Type, decoded.Type)
		}
		if decoded.Config != s.Config {
			t.Errorf("config: want(%+v) have(%+v)", s.Config, decoded.Config)
		}
		if decoded.Create() == nil {
			t.Errorf("create returned nil solver for %v", s.Type)
		}
	}
}

func TestSolverJSONInvalid(t *testing.T) {
	tests := []string{
		`{"Type": "SGD", "Config": {}}`,
		`{"Type": "Adam", "Config": {"StepSize": -1, "Batch": 1}}`,
		`{"Type": "Vanilla", "Config": {"StepSize": 0.1, "Batch": 0}}`,
	}
	for _, test := range tests {
		var s Solver
		if err := json.Unmarshal([]byte(test), &s); err == nil {
			t.Errorf("expected error unmarshalling %v", test)
		}
	}
}

func TestCreateReturnsIndependentSolvers(t *testing.T) {
	adam, err := NewDefaultAdam(0.001)
	if err != nil {
		t.Fatal(err)
	}
	if adam.Create() == adam.Create() {
		t.Error("create must return a new solver on every call")
	}
}
