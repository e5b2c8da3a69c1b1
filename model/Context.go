package model

import (
	G "gorgonia.org/gorgonia"
)

// Context describes how the computational graphs of a Model are
// executed. Every Model receives its Context at construction, so that
// models in the same process never share execution state.
type Context struct {
	// Name labels the context in logs
	Name string

	// WatchNaN makes VMs fail as soon as a NaN or Inf value is computed
	WatchNaN bool

	// VMOpts are appended to the options of every VM a Model compiles
	VMOpts []G.VMOpt
}

// CPU returns the default Context, which runs graphs on the CPU with
// Gorgonia's tape machine
func CPU() Context {
	return Context{Name: "cpu"}
}

// vmOpts returns the VM options of the context following extra
func (c Context) vmOpts(extra ...G.VMOpt) []G.VMOpt {
	opts := append([]G.VMOpt{}, extra...)
	if c.WatchNaN {
		opts = append(opts, G.WithNaNWatch(), G.WithInfWatch())
	}
	return append(opts, c.VMOpts...)
}

// String implements the fmt.Stringer interface
func (c Context) String() string {
	if c.Name == "" {
		return "cpu"
	}
	return c.Name
}
