package model

import (
	"errors"
	"fmt"

	"github.com/aunum/log"
	"github.com/samuelfneumann/hra/experiment/checkpointer"
	"github.com/samuelfneumann/hra/network"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Model is a value model with one head per reward type. Each head
// predicts the value of every action, and actions are selected greedily
// with respect to the sum of the heads.
//
// A Model compiles three graphs over the same weights: a single-input
// graph for acting, a batch graph for computing bootstrap targets, and
// a training graph with the loss and its gradients. The training graph
// owns the canonical weights; the other two are refreshed after every
// change.
type Model struct {
	name  string
	ctx   Context
	store checkpointer.Store

	features  int
	actions   int
	heads     int
	batchSize int

	singleNet *network.HRANet
	singleVM  G.VM
	batchNet  *network.HRANet
	batchVM   G.VM

	trainNet     *network.HRANet
	trainVM      G.VM
	solver       G.Solver
	actionMask   *G.Node
	targets      []*G.Node
	weights      *G.Node
	loss         *G.Node
	lossVal      G.Value
	fitsSinceNew int
}

// New returns a new Model called name which predicts the value of
// actions actions for states of size features, using one head per
// reward type. Batches used for training and batched prediction have
// batchSize rows. The store is used to checkpoint the model under its
// name.
func New(name string, features, actions, heads, batchSize int, c Config,
	ctx Context, store checkpointer.Store) (*Model, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if batchSize < 2 {
		return nil, fmt.Errorf("new: batch size must be >= 2 \n\twant(>=2)"+
			"\n\thave(%v)", batchSize)
	}
	if store == nil {
		return nil, fmt.Errorf("new: nil checkpoint store")
	}

	newNet := func(batch int) (*network.HRANet, error) {
		return network.NewHRANet(features, batch, actions, heads,
			G.NewGraph(), c.HiddenSizes, c.Biases, c.InitWFn.InitWFn(),
			c.Activations)
	}

	m := &Model{
		name:      name,
		ctx:       ctx,
		store:     store,
		features:  features,
		actions:   actions,
		heads:     heads,
		batchSize: batchSize,
		solver:    c.Solver.Create(),
	}

	var err error
	if m.trainNet, err = newNet(batchSize); err != nil {
		return nil, fmt.Errorf("new: could not create training network: %v",
			err)
	}
	if m.singleNet, err = newNet(1); err != nil {
		return nil, fmt.Errorf("new: could not create network: %v", err)
	}
	if m.batchNet, err = newNet(batchSize); err != nil {
		return nil, fmt.Errorf("new: could not create batch network: %v",
			err)
	}

	m.buildLoss()
	if _, err := G.Grad(m.loss, m.trainNet.Learnables()...); err != nil {
		msg := fmt.Sprintf("new: could not compute gradient: %v", err)
		panic(msg)
	}

	m.trainVM = G.NewTapeMachine(m.trainNet.Graph(), ctx.vmOpts(
		G.BindDualValues(m.trainNet.Learnables()...))...)
	m.singleVM = G.NewTapeMachine(m.singleNet.Graph(), ctx.vmOpts()...)
	m.batchVM = G.NewTapeMachine(m.batchNet.Graph(), ctx.vmOpts()...)

	if err := m.sync(); err != nil {
		m.Close()
		return nil, fmt.Errorf("new: %v", err)
	}
	return m, nil
}

// buildLoss adds the training loss to the training graph: for each
// head, the importance-weighted mean squared error between the target
// and the predicted value of the action taken, averaged over heads.
func (m *Model) buildLoss() {
	g := m.trainNet.Graph()

	m.actionMask = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(m.batchSize, m.actions),
		G.WithName("actionMask"),
		G.WithInit(G.Zeroes()),
	)
	m.weights = G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(m.batchSize),
		G.WithName("sampleWeights"),
		G.WithInit(G.Ones()),
	)

	m.targets = make([]*G.Node, m.heads)
	var cost *G.Node
	for h, pred := range m.trainNet.Predictions() {
		m.targets[h] = G.NewVector(
			g,
			tensor.Float64,
			G.WithShape(m.batchSize),
			G.WithName(fmt.Sprintf("target%v", h)),
			G.WithInit(G.Zeroes()),
		)

		selected := G.Must(G.HadamardProd(pred, m.actionMask))
		selected = G.Must(G.Sum(selected, 1))

		losses := G.Must(G.Sub(m.targets[h], selected))
		losses = G.Must(G.Square(losses))
		losses = G.Must(G.HadamardProd(losses, m.weights))
		headCost := G.Must(G.Mean(losses))

		if cost == nil {
			cost = headCost
		} else {
			cost = G.Must(G.Add(cost, headCost))
		}
	}
	m.loss = G.Must(G.Div(cost, G.NewConstant(float64(m.heads))))
	G.Read(m.loss, &m.lossVal)
}

// sync copies the training weights into the acting and batch networks
func (m *Model) sync() error {
	if err := m.singleNet.Set(m.trainNet); err != nil {
		return fmt.Errorf("sync: %v", err)
	}
	if err := m.batchNet.Set(m.trainNet); err != nil {
		return fmt.Errorf("sync: %v", err)
	}
	return nil
}

// Name returns the name the model is checkpointed under
func (m *Model) Name() string {
	return m.name
}

// Heads returns the number of reward heads
func (m *Model) Heads() int {
	return m.heads
}

// Actions returns the number of actions
func (m *Model) Actions() int {
	return m.actions
}

// Features returns the size of states
func (m *Model) Features() int {
	return m.features
}

// BatchSize returns the number of rows in training and batch
// prediction batches
func (m *Model) BatchSize() int {
	return m.batchSize
}

// Predict returns the greedy action in state together with the value
// of each action under each head and the combined value of each action
// summed over heads. Ties are broken in favour of the lowest action
// index.
func (m *Model) Predict(state mat.Vector) (int, [][]float64, []float64,
	error) {
	if state.Len() != m.features {
		return 0, nil, nil, fmt.Errorf("predict: invalid state size "+
			"\n\twant(%v)\n\thave(%v)", m.features, state.Len())
	}

	input := make([]float64, m.features)
	for i := range input {
		input[i] = state.AtVec(i)
	}
	if err := m.singleNet.SetInput(input); err != nil {
		return 0, nil, nil, fmt.Errorf("predict: %v", err)
	}
	if err := m.singleVM.RunAll(); err != nil {
		return 0, nil, nil, fmt.Errorf("predict: %v", err)
	}
	q := m.singleNet.Outputs()
	m.singleVM.Reset()

	combined := make([]float64, m.actions)
	for _, head := range q {
		floats.Add(combined, head)
	}
	return floats.MaxIdx(combined), q, combined, nil
}

// PredictBatch returns, for each head, a batch x actions matrix of the
// value of each action in each state. The states must have BatchSize
// rows.
func (m *Model) PredictBatch(states *mat.Dense) ([]*mat.Dense, error) {
	input, err := m.flatten(states)
	if err != nil {
		return nil, fmt.Errorf("predictBatch: %v", err)
	}
	if err := m.batchNet.SetInput(input); err != nil {
		return nil, fmt.Errorf("predictBatch: %v", err)
	}
	if err := m.batchVM.RunAll(); err != nil {
		return nil, fmt.Errorf("predictBatch: %v", err)
	}
	outputs := m.batchNet.Outputs()
	m.batchVM.Reset()

	values := make([]*mat.Dense, m.heads)
	for h, out := range outputs {
		values[h] = mat.NewDense(m.batchSize, m.actions, out)
	}
	return values, nil
}

// Fit performs one optimization step and returns the loss before the
// step. For sample i of the batch, the value of action actions[i] in
// states row i is regressed towards targets.At(h, i) under each head h,
// with squared errors scaled by weights[i]. A nil weights weighs every
// sample equally. The step is the global step count of the caller and
// is only used for logging.
func (m *Model) Fit(states *mat.Dense, actions []int, targets *mat.Dense,
	weights []float64, step int) (float64, error) {
	input, err := m.flatten(states)
	if err != nil {
		return 0, fmt.Errorf("fit: %v", err)
	}
	if len(actions) != m.batchSize {
		return 0, fmt.Errorf("fit: invalid number of actions \n\twant(%v)"+
			"\n\thave(%v)", m.batchSize, len(actions))
	}
	if r, c := targets.Dims(); r != m.heads || c != m.batchSize {
		return 0, fmt.Errorf("fit: invalid target shape \n\twant(%v, %v)"+
			"\n\thave(%v, %v)", m.heads, m.batchSize, r, c)
	}
	if weights == nil {
		weights = make([]float64, m.batchSize)
		for i := range weights {
			weights[i] = 1.0
		}
	} else if len(weights) != m.batchSize {
		return 0, fmt.Errorf("fit: invalid number of weights \n\twant(%v)"+
			"\n\thave(%v)", m.batchSize, len(weights))
	}

	mask := make([]float64, m.batchSize*m.actions)
	for i, a := range actions {
		if a < 0 || a >= m.actions {
			return 0, fmt.Errorf("fit: invalid action \n\twant([0, %v))"+
				"\n\thave(%v)", m.actions, a)
		}
		mask[i*m.actions+a] = 1.0
	}

	if err := m.trainNet.SetInput(input); err != nil {
		return 0, fmt.Errorf("fit: %v", err)
	}
	if err := G.Let(m.actionMask, tensor.New(
		tensor.WithBacking(mask),
		tensor.WithShape(m.batchSize, m.actions),
	)); err != nil {
		return 0, fmt.Errorf("fit: could not set actions: %v", err)
	}
	if err := G.Let(m.weights, tensor.New(
		tensor.WithBacking(append([]float64(nil), weights...)),
		tensor.WithShape(m.batchSize),
	)); err != nil {
		return 0, fmt.Errorf("fit: could not set weights: %v", err)
	}
	for h, target := range m.targets {
		row := mat.Row(nil, h, targets)
		if err := G.Let(target, tensor.New(
			tensor.WithBacking(row),
			tensor.WithShape(m.batchSize),
		)); err != nil {
			return 0, fmt.Errorf("fit: could not set targets: %v", err)
		}
	}

	if err := m.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("fit: %v", err)
	}
	if err := m.solver.Step(m.trainNet.Model()); err != nil {
		m.trainVM.Reset()
		return 0, fmt.Errorf("fit: could not step solver: %v", err)
	}
	loss := scalar(m.lossVal)
	m.trainVM.Reset()

	if err := m.sync(); err != nil {
		return 0, fmt.Errorf("fit: %v", err)
	}
	m.fitsSinceNew++

	log.Debugf("%s: step %d fit %d loss %.6f", m.name, step, m.fitsSinceNew,
		loss)
	return loss, nil
}

// Replace sets the weights of m to a copy of the weights of source
func (m *Model) Replace(source *Model) error {
	if err := m.trainNet.Set(source.trainNet); err != nil {
		return fmt.Errorf("replace: %v", err)
	}
	if err := m.sync(); err != nil {
		return fmt.Errorf("replace: %v", err)
	}
	return nil
}

// SaveNetwork saves the weights of the model to its checkpoint store
// under the model's name
func (m *Model) SaveNetwork() error {
	data, err := m.trainNet.GobEncode()
	if err != nil {
		return fmt.Errorf("saveNetwork: %v", err)
	}
	if err := m.store.Save(m.name, data); err != nil {
		return fmt.Errorf("saveNetwork: %w", err)
	}
	return nil
}

// LoadNetwork loads the weights of the model from its checkpoint store.
// The checkpoint must have been saved by a model with the same
// architecture. If no checkpoint exists, the returned error wraps
// checkpointer.ErrNotFound.
func (m *Model) LoadNetwork() error {
	data, err := m.store.Load(m.name)
	if err != nil {
		return fmt.Errorf("loadNetwork: %w", err)
	}
	if err := m.trainNet.GobDecode(data); err != nil {
		return fmt.Errorf("loadNetwork: %v", err)
	}
	if err := m.sync(); err != nil {
		return fmt.Errorf("loadNetwork: %v", err)
	}
	return nil
}

// Weights returns a copy of the model's weights
func (m *Model) Weights() [][]float64 {
	return m.trainNet.Weights()
}

// Close releases the VMs of the model
func (m *Model) Close() error {
	var errs []error
	for _, vm := range []G.VM{m.trainVM, m.singleVM, m.batchVM} {
		if vm == nil {
			continue
		}
		if err := vm.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flatten returns the row-major data of a batch of states
func (m *Model) flatten(states *mat.Dense) ([]float64, error) {
	r, c := states.Dims()
	if r != m.batchSize || c != m.features {
		return nil, fmt.Errorf("invalid state batch shape \n\twant(%v, %v)"+
			"\n\thave(%v, %v)", m.batchSize, m.features, r, c)
	}
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, states.RawRowView(i)...)
	}
	return data, nil
}

// scalar returns the float64 held by a scalar Value
func scalar(v G.Value) float64 {
	switch data := v.Data().(type) {
	case float64:
		return data
	case []float64:
		return data[0]
	default:
		panic(fmt.Sprintf("scalar: unexpected value type %T", data))
	}
}
