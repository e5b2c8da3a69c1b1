// Package solver implements JSON serializable descriptions of Gorgonia
// Solvers so that they can be stored in configuration files.
package solver

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// Solver describes a Gorgonia Solver so that it can be JSON marshalled
// and unmarshalled.
//
// Gorgonia Solvers are stateful, so a Solver does not hold one. Each
// model that trains with a Solver should call Create to obtain its own.
type Solver struct {
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSolver: %v", err)
	}
	return &Solver{Type: t, Config: c}, nil
}

// Create returns a new Gorgonia Solver as described by the Solver
func (s *Solver) Create() G.Solver {
	return s.Config.Create()
}

// String implements the fmt.Stringer interface
func (s *Solver) String() string {
	return fmt.Sprintf("{%v Solver: %+v}", s.Type, s.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	var config Config
	switch raw.Type {
	case Adam:
		c := AdamConfig{}
		if err := json.Unmarshal(raw.Config, &c); err != nil {
			return fmt.Errorf("unmarshalJSON: %v", err)
		}
		config = c

	case Vanilla:
		c := VanillaConfig{}
		if err := json.Unmarshal(raw.Config, &c); err != nil {
			return fmt.Errorf("unmarshalJSON: %v", err)
		}
		config = c

	case RMSProp:
		c := RMSPropConfig{}
		if err := json.Unmarshal(raw.Config, &c); err != nil {
			return fmt.Errorf("unmarshalJSON: %v", err)
		}
		config = c

	default:
		return fmt.Errorf("unmarshalJSON: unknown solver type %q", raw.Type)
	}

	solver, err := newSolver(raw.Type, config)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	*s = *solver
	return nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	// Validate returns an error if the hyperparameters are illegal
	Validate() error
}
