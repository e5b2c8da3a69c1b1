// Package network implements the value networks of decomposed-reward
// agents as gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a network with one output node per reward head. Each
// output node is a batch x actions matrix of action values.
type NeuralNet interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Features() int
	Actions() int
	Heads() int
	SetInput([]float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Predictions() []*G.Node
	Outputs() [][]float64
}
