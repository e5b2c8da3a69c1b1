package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// HRANet implements a value network with one head per reward type.
// Every head is an independent multi-layered perceptron which maps the
// shared input to one value per action, so that the heads of the
// network only interact through the sum of their outputs when
// selecting actions.
type HRANet struct {
	g          *G.ExprGraph
	input      *G.Node
	heads      [][]*fcLayer
	numInputs  int
	numActions int
	batchSize  int

	// Data needed for gobbing and for checking architectures
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	predictions []*G.Node
	predVals    []G.Value
}

// NewHRANet creates and returns a new HRANet with heads output heads,
// each predicting the value of actions actions for a batch of batch
// observations of size features. The graph g is populated with the
// network.
//
// Each head has len(hiddenSizes) + 1 layers. For index i, hiddenSizes[i]
// is the number of nodes in hidden layer i, biases[i] is true if hidden
// layer i has a bias unit, and activations[i] is its activation. A final
// linear layer with a bias unit produces the action values. The init
// parameter determines the weight initialization scheme.
func NewHRANet(features, batch, actions, heads int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (*HRANet, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newHRANet: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newHRANet: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if features < 1 || batch < 1 || actions < 1 || heads < 1 {
		return nil, fmt.Errorf("newHRANet: features, batch, actions and "+
			"heads must be positive \n\thave(%v, %v, %v, %v)", features,
			batch, actions, heads)
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, fmt.Errorf("newHRANet: hidden layer %v must have "+
				"at least one unit \n\thave(%v)", i, size)
		}
	}

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	net := &HRANet{
		g:           g,
		input:       input,
		heads:       make([][]*fcLayer, heads),
		numInputs:   features,
		numActions:  actions,
		batchSize:   batch,
		hiddenSizes: append([]int(nil), hiddenSizes...),
		biases:      append([]bool(nil), biases...),
		activations: append([]*Activation(nil), activations...),
		predictions: make([]*G.Node, heads),
		predVals:    make([]G.Value, heads),
	}

	for h := 0; h < heads; h++ {
		in := features
		layers := make([]*fcLayer, 0, len(hiddenSizes)+1)
		for i, size := range hiddenSizes {
			name := fmt.Sprintf("head%vL%v", h, i)
			layers = append(layers, newFCLayer(g, in, size, biases[i],
				activations[i], init, name))
			in = size
		}
		name := fmt.Sprintf("head%vOut", h)
		layers = append(layers, newFCLayer(g, in, actions, true, Identity(),
			init, name))
		net.heads[h] = layers
	}

	if err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newHRANet: could not compute forward pass: %v",
			err)
	}
	return net, nil
}

// fwd adds the forward pass of each head to the graph
func (n *HRANet) fwd() error {
	for h, layers := range n.heads {
		pred := n.input
		var err error
		for i, l := range layers {
			if pred, err = l.fwd(pred); err != nil {
				return fmt.Errorf("fwd: head %v layer %v: %v", h, i, err)
			}
		}
		n.predictions[h] = pred
		G.Read(pred, &n.predVals[h])
	}
	return nil
}

// Graph returns the computational graph of the network
func (n *HRANet) Graph() *G.ExprGraph {
	return n.g
}

// BatchSize returns the number of observations in an input batch
func (n *HRANet) BatchSize() int {
	return n.batchSize
}

// Features returns the number of features in a single observation
func (n *HRANet) Features() int {
	return n.numInputs
}

// Actions returns the number of actions each head predicts values for
func (n *HRANet) Actions() int {
	return n.numActions
}

// Heads returns the number of reward heads
func (n *HRANet) Heads() int {
	return len(n.heads)
}

// Input returns the input node of the network
func (n *HRANet) Input() *G.Node {
	return n.input
}

// SetInput sets the value of the input node before running the forward
// pass. The input is a row-major batch x features matrix.
func (n *HRANet) SetInput(input []float64) error {
	if len(input) != n.numInputs*n.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", n.numInputs*n.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(n.input.Shape()...),
	)
	return G.Let(n.input, inputTensor)
}

// Learnables returns the learnable nodes of all heads, ordered by head
// and then by layer
func (n *HRANet) Learnables() G.Nodes {
	// Lazy instantiation
	if n.learnables == nil {
		learnables := make(G.Nodes, 0, 2*len(n.heads)*(len(n.hiddenSizes)+1))
		for _, layers := range n.heads {
			for _, l := range layers {
				learnables = append(learnables, l.learnables()...)
			}
		}
		n.learnables = learnables
	}
	return n.learnables
}

// Model returns the learnables nodes with their gradients
func (n *HRANet) Model() []G.ValueGrad {
	// Lazy instantiation
	if n.model == nil {
		n.model = G.NodesToValueGrads(n.Learnables())
	}
	return n.model
}

// Predictions returns the output node of each head
func (n *HRANet) Predictions() []*G.Node {
	return n.predictions
}

// Outputs returns a copy of the last computed output of each head as a
// row-major batch x actions slice. Outputs returns nil slices for heads
// which have not yet been computed.
func (n *HRANet) Outputs() [][]float64 {
	out := make([][]float64, len(n.predVals))
	for h, val := range n.predVals {
		if val == nil {
			continue
		}
		out[h] = append([]float64(nil), val.Data().([]float64)...)
	}
	return out
}

// compatible returns an error if source does not have the same
// parameter shapes as n
func (n *HRANet) compatible(source *HRANet) error {
	if n.numInputs != source.numInputs || n.numActions != source.numActions ||
		len(n.heads) != len(source.heads) {
		return fmt.Errorf("incompatible networks \n\twant(features=%v, "+
			"actions=%v, heads=%v)\n\thave(features=%v, actions=%v, heads=%v)",
			n.numInputs, n.numActions, len(n.heads), source.numInputs,
			source.numActions, len(source.heads))
	}

	dest, src := n.Learnables(), source.Learnables()
	if len(dest) != len(src) {
		return fmt.Errorf("incompatible number of learnables \n\twant(%v)"+
			"\n\thave(%v)", len(dest), len(src))
	}
	for i := range dest {
		if !dest[i].Shape().Eq(src[i].Shape()) {
			return fmt.Errorf("incompatible shape for learnable %v "+
				"\n\twant(%v)\n\thave(%v)", dest[i].Name(), dest[i].Shape(),
				src[i].Shape())
		}
	}
	return nil
}

// Set copies the weights of source into the weights of n. The weights
// are copied into n's own storage, so later changes to source do not
// affect n. The networks may have different batch sizes.
func (n *HRANet) Set(source *HRANet) error {
	if err := n.compatible(source); err != nil {
		return fmt.Errorf("set: %v", err)
	}

	src := source.Learnables()
	for i, dest := range n.Learnables() {
		copy(dest.Value().Data().([]float64), src[i].Value().Data().([]float64))
	}
	return nil
}

// Weights returns a copy of the data of each learnable node, in the
// order given by Learnables
func (n *HRANet) Weights() [][]float64 {
	learnables := n.Learnables()
	weights := make([][]float64, len(learnables))
	for i, node := range learnables {
		weights[i] = append([]float64(nil),
			node.Value().Data().([]float64)...)
	}
	return weights
}

// SetWeights sets the data of each learnable node, in the order given by
// Learnables. No weights are changed if the sizes do not match.
func (n *HRANet) SetWeights(weights [][]float64) error {
	learnables := n.Learnables()
	if len(weights) != len(learnables) {
		return fmt.Errorf("setWeights: invalid number of learnables "+
			"\n\twant(%v)\n\thave(%v)", len(learnables), len(weights))
	}
	for i, node := range learnables {
		if size := node.Shape().TotalSize(); size != len(weights[i]) {
			return fmt.Errorf("setWeights: invalid size for learnable %v "+
				"\n\twant(%v)\n\thave(%v)", node.Name(), size, len(weights[i]))
		}
	}

	for i, node := range learnables {
		copy(node.Value().Data().([]float64), weights[i])
	}
	return nil
}

// netState is the gob representation of an HRANet
type netState struct {
	Features    int
	Actions     int
	Heads       int
	HiddenSizes []int
	Biases      []bool
	Activations []string
	Weights     [][]float64
}

// GobEncode implements the gob.GobEncoder interface. Only the
// architecture and the weights are encoded, the batch size is not.
func (n *HRANet) GobEncode() ([]byte, error) {
	activations := make([]string, len(n.activations))
	for i, a := range n.activations {
		activations[i] = a.String()
	}

	state := netState{
		Features:    n.numInputs,
		Actions:     n.numActions,
		Heads:       len(n.heads),
		HiddenSizes: n.hiddenSizes,
		Biases:      n.biases,
		Activations: activations,
		Weights:     n.Weights(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface.
//
// Unlike most decoders, GobDecode loads weights into an existing network
// in place, so that any VMs compiled for the network's graph remain
// valid. The encoded architecture must match the architecture of n;
// otherwise an error is returned and no weights are changed.
func (n *HRANet) GobDecode(in []byte) error {
	if n.g == nil {
		return fmt.Errorf("gobdecode: network must be constructed before " +
			"decoding weights into it")
	}

	var state netState
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&state); err != nil {
		return fmt.Errorf("gobdecode: could not decode network: %v", err)
	}

	if state.Features != n.numInputs || state.Actions != n.numActions ||
		state.Heads != len(n.heads) {
		return fmt.Errorf("gobdecode: architecture mismatch \n\twant("+
			"features=%v, actions=%v, heads=%v)\n\thave(features=%v, "+
			"actions=%v, heads=%v)", n.numInputs, n.numActions, len(n.heads),
			state.Features, state.Actions, state.Heads)
	}
	if !equalInts(state.HiddenSizes, n.hiddenSizes) {
		return fmt.Errorf("gobdecode: hidden sizes mismatch \n\twant(%v)"+
			"\n\thave(%v)", n.hiddenSizes, state.HiddenSizes)
	}
	if len(state.Biases) != len(n.biases) {
		return fmt.Errorf("gobdecode: biases mismatch \n\twant(%v)"+
			"\n\thave(%v)", n.biases, state.Biases)
	}
	for i := range n.biases {
		if state.Biases[i] != n.biases[i] {
			return fmt.Errorf("gobdecode: biases mismatch \n\twant(%v)"+
				"\n\thave(%v)", n.biases, state.Biases)
		}
	}
	for i, a := range n.activations {
		if i >= len(state.Activations) || state.Activations[i] != a.String() {
			return fmt.Errorf("gobdecode: activations mismatch \n\twant(%v)"+
				"\n\thave(%v)", n.activations, state.Activations)
		}
	}

	if err := n.SetWeights(state.Weights); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}
	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
