// Package model implements value models with one value head per reward
// type, which can predict, be trained, be synchronized with each other,
// and be checkpointed
package model

import (
	"fmt"

	"github.com/samuelfneumann/hra/initwfn"
	"github.com/samuelfneumann/hra/network"
	"github.com/samuelfneumann/hra/solver"
)

// Config describes the network architecture and optimizer of a Model
type Config struct {
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation

	InitWFn *initwfn.InitWFn
	Solver  *solver.Solver
}

// DefaultConfig returns the default model configuration: one hidden
// layer of 64 rectified units per reward head trained with Adam
func DefaultConfig() Config {
	adam, err := solver.NewDefaultAdam(1e-3)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}
	return Config{
		HiddenSizes: []int{64},
		Biases:      []bool{true},
		Activations: []*network.Activation{network.ReLU()},
		InitWFn:     initwfn.NewGlorotU(1.0),
		Solver:      adam,
	}
}

// Validate returns an error if the configuration is illegal
func (c Config) Validate() error {
	if len(c.HiddenSizes) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases \n\twant(%v)"+
			"\n\thave(%v)", len(c.HiddenSizes), len(c.Biases))
	}
	if len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations "+
			"\n\twant(%v)\n\thave(%v)", len(c.HiddenSizes), len(c.Activations))
	}
	for i, a := range c.Activations {
		if a == nil {
			return fmt.Errorf("validate: activation %v is nil", i)
		}
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver")
	}
	return nil
}
