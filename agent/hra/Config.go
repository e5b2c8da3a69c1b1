package hra

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/samuelfneumann/hra/model"
)

const (
	// Bootstrap aggregations of the next-state action values of each
	// reward head
	BootstrapMean = "mean"
	BootstrapMax  = "max"
)

// Config implements a configuration for an HRA agent
type Config struct {
	// Network architecture and optimizer of the value models
	Network model.Config

	// Features is the size of the state vectors given to the agent
	Features int

	// Experience replay
	MemorySize      int     // Capacity of the replay buffer
	BatchSize       int     // Transitions sampled per update
	Alpha           float64 // Priority exponent
	PriorityEpsilon float64 // Added to |TD error| to keep priorities positive

	// Importance sampling exponent, annealed linearly from BetaInitial
	// to BetaFinal over BetaHorizon steps
	BetaInitial float64
	BetaFinal   float64
	BetaHorizon int

	DiscountFactor float64

	// Bootstrap determines how each reward head aggregates its
	// next-state action values in the update target, either
	// BootstrapMean or BootstrapMax
	Bootstrap string

	// Exploration: ε = max(MinEpsilon,
	// StartingEpsilon * DecayRate^(steps / DecaySteps))
	StartingEpsilon float64
	DecayRate       float64
	DecaySteps      int

	// MinEpsilon is the floor of ε while learning. HRA agents keep
	// exploring at 0.1, the default; lower floors are only meant for
	// tests and evaluation runs which need deterministic actions.
	MinEpsilon float64

	UpdateFrequency int // Steps between target model syncs
	UpdateSteps     int // Steps between updates of the eval model
	SaveSteps       int // Episodes between checkpoints, <= 0 disables

	// Restore loads both models from their checkpoints at construction
	Restore bool

	// CheckpointDir is the directory of the default file checkpoint
	// store. If empty, checkpoints are only kept in memory.
	CheckpointDir string

	Seed uint64
}

// DefaultConfig returns the default configuration for states of size
// features
func DefaultConfig(features int) Config {
	return Config{
		Network:  model.DefaultConfig(),
		Features: features,

		MemorySize:      10000,
		BatchSize:       32,
		Alpha:           0.6,
		PriorityEpsilon: 1e-6,

		BetaInitial: 0.2,
		BetaFinal:   1.0,
		BetaHorizon: 10000,

		DiscountFactor: 0.99,
		Bootstrap:      BootstrapMean,

		StartingEpsilon: 1.0,
		DecayRate:       0.96,
		DecaySteps:      250,
		MinEpsilon:      0.1,

		UpdateFrequency: 1000,
		UpdateSteps:     100,
		SaveSteps:       100,
	}
}

// ReadConfig reads a JSON configuration from r. Fields missing from
// the JSON keep their values from DefaultConfig.
func ReadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig(0)

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("readConfig: could not decode: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("readConfig: %w", err)
	}
	return c, nil
}

// Validate checks a Config to ensure it is a valid configuration of an
// HRA agent
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}

	if c.Features < 1 {
		return fmt.Errorf("validate: features must be positive \n\twant(>0)"+
			"\n\thave(%v)", c.Features)
	}

	if c.BatchSize < 2 {
		return fmt.Errorf("validate: batch size must be at least 2 "+
			"\n\twant(>=2)\n\thave(%v)", c.BatchSize)
	}
	if c.MemorySize < c.BatchSize {
		return fmt.Errorf("validate: memory size must hold at least one "+
			"batch \n\twant(>=%v)\n\thave(%v)", c.BatchSize, c.MemorySize)
	}
	if c.Alpha < 0 {
		return fmt.Errorf("validate: alpha must be non-negative "+
			"\n\twant(>=0)\n\thave(%v)", c.Alpha)
	}
	if c.PriorityEpsilon <= 0 || math.IsInf(c.PriorityEpsilon, 0) {
		return fmt.Errorf("validate: priority epsilon must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.PriorityEpsilon)
	}

	if c.BetaHorizon < 1 {
		return fmt.Errorf("validate: beta horizon must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.BetaHorizon)
	}
	if c.BetaInitial < 0 || c.BetaFinal < 0 {
		return fmt.Errorf("validate: beta must be non-negative "+
			"\n\twant(>=0)\n\thave(%v, %v)", c.BetaInitial, c.BetaFinal)
	}

	if c.DiscountFactor < 0 || c.DiscountFactor > 1 {
		return fmt.Errorf("validate: discount factor must be in [0, 1] "+
			"\n\twant([0, 1])\n\thave(%v)", c.DiscountFactor)
	}
	if c.Bootstrap != BootstrapMean && c.Bootstrap != BootstrapMax {
		return fmt.Errorf("validate: unknown bootstrap aggregation "+
			"\n\twant(%q or %q)\n\thave(%q)", BootstrapMean, BootstrapMax,
			c.Bootstrap)
	}

	if c.StartingEpsilon < 0 || c.StartingEpsilon > 1 {
		return fmt.Errorf("validate: starting epsilon must be in [0, 1] "+
			"\n\twant([0, 1])\n\thave(%v)", c.StartingEpsilon)
	}
	if c.MinEpsilon < 0 || c.MinEpsilon > 1 {
		return fmt.Errorf("validate: minimum epsilon must be in [0, 1] "+
			"\n\twant([0, 1])\n\thave(%v)", c.MinEpsilon)
	}
	if c.DecayRate <= 0 || c.DecayRate > 1 {
		return fmt.Errorf("validate: decay rate must be in (0, 1] "+
			"\n\twant((0, 1])\n\thave(%v)", c.DecayRate)
	}
	if c.DecaySteps < 1 {
		return fmt.Errorf("validate: decay steps must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.DecaySteps)
	}

	if c.UpdateFrequency < 1 {
		return fmt.Errorf("validate: target model must be synced at "+
			"positive step intervals \n\twant(>0)\n\thave(%v)",
			c.UpdateFrequency)
	}
	if c.UpdateSteps < 1 {
		return fmt.Errorf("validate: eval model must be updated at "+
			"positive step intervals \n\twant(>0)\n\thave(%v)", c.UpdateSteps)
	}

	return nil
}
