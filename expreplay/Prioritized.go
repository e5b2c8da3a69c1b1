// Package expreplay implements a prioritized experience replay buffer
// for transitions with decomposed rewards
package expreplay

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hra/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Batch is a batch of transitions sampled from a Prioritized buffer.
// Row i of each matrix and element i of each slice describe the same
// transition.
type Batch struct {
	States     *mat.Dense // batch x features
	Actions    []int
	Rewards    *mat.Dense // batch x reward types
	NextStates *mat.Dense // batch x features
	Terminal   []bool

	// Weights are the importance sampling weights of each transition,
	// normalized so that the largest weight in the batch is 1
	Weights []float64

	// Indices are the buffer slots of each transition, used to update
	// their priorities after learning
	Indices []int
}

// Size returns the number of transitions in the batch
func (b Batch) Size() int {
	return len(b.Actions)
}

// Prioritized implements a fixed-capacity ring buffer of transitions
// which are sampled with probability proportional to priority^alpha.
//
// New transitions are inserted with the largest priority seen so far,
// and once the buffer is full each insert overwrites the oldest
// transition.
type Prioritized struct {
	stateCache     []float64
	actionCache    []int
	rewardCache    []float64
	nextStateCache []float64
	terminalCache  []bool
	priorities     []float64

	tree        *sumTree
	maxPriority float64
	alpha       float64

	currentInUsePos int
	size            int

	maxCapacity int
	featureSize int
	rewardSize  int

	rng *rand.Rand
}

// NewPrioritized returns a new Prioritized buffer holding at most
// capacity transitions with states of size features and reward vectors
// of size rewardTypes. The alpha parameter determines how strongly
// priorities influence sampling, with alpha = 0 corresponding to
// uniform sampling.
func NewPrioritized(capacity, features, rewardTypes int, alpha float64,
	seed uint64) (*Prioritized, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("newPrioritized: capacity must be >= 1 "+
			"\n\twant(>=1)\n\thave(%v)", capacity)
	}
	if features < 1 {
		return nil, fmt.Errorf("newPrioritized: features must be >= 1 "+
			"\n\twant(>=1)\n\thave(%v)", features)
	}
	if rewardTypes < 1 {
		return nil, fmt.Errorf("newPrioritized: rewardTypes must be >= 1 "+
			"\n\twant(>=1)\n\thave(%v)", rewardTypes)
	}
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("newPrioritized: alpha must be finite and "+
			"non-negative \n\twant(>=0)\n\thave(%v)", alpha)
	}

	return &Prioritized{
		stateCache:     make([]float64, capacity*features),
		actionCache:    make([]int, capacity),
		rewardCache:    make([]float64, capacity*rewardTypes),
		nextStateCache: make([]float64, capacity*features),
		terminalCache:  make([]bool, capacity),
		priorities:     make([]float64, capacity),

		tree:        newSumTree(capacity),
		maxPriority: 1.0,
		alpha:       alpha,

		maxCapacity: capacity,
		featureSize: features,
		rewardSize:  rewardTypes,

		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// Len returns the number of transitions currently stored
func (p *Prioritized) Len() int {
	return p.size
}

// Capacity returns the maximum number of transitions that can be stored
func (p *Prioritized) Capacity() int {
	return p.maxCapacity
}

// Alpha returns the priority exponent
func (p *Prioritized) Alpha() float64 {
	return p.alpha
}

// MaxPriority returns the largest priority seen so far, which is the
// priority given to newly added transitions
func (p *Prioritized) MaxPriority() float64 {
	return p.maxPriority
}

// Add adds a transition to the buffer with the maximum priority seen so
// far, overwriting the oldest transition if the buffer is full
func (p *Prioritized) Add(t timestep.Transition) error {
	if t.State == nil || t.NextState == nil {
		return fmt.Errorf("add: transition states must not be nil")
	}
	if t.State.Len() != p.featureSize || t.NextState.Len() != p.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\t"+
			"have(%v, %v)", p.featureSize, t.State.Len(), t.NextState.Len())
	}
	if len(t.Reward) != p.rewardSize {
		return fmt.Errorf("add: invalid reward size \n\twant(%v)\n\thave(%v)",
			p.rewardSize, len(t.Reward))
	}
	if t.Action < 0 {
		return fmt.Errorf("add: action must be non-negative \n\twant(>=0)"+
			"\n\thave(%v)", t.Action)
	}

	index := p.currentInUsePos

	stateInd := index * p.featureSize
	for i := 0; i < p.featureSize; i++ {
		p.stateCache[stateInd+i] = t.State.AtVec(i)
		p.nextStateCache[stateInd+i] = t.NextState.AtVec(i)
	}

	rewardInd := index * p.rewardSize
	copy(p.rewardCache[rewardInd:rewardInd+p.rewardSize], t.Reward)

	p.actionCache[index] = t.Action
	p.terminalCache[index] = t.Terminal

	p.priorities[index] = p.maxPriority
	p.tree.set(index, math.Pow(p.maxPriority, p.alpha))

	p.currentInUsePos = (p.currentInUsePos + 1) % p.maxCapacity
	if p.size < p.maxCapacity {
		p.size++
	}
	return nil
}

// Sample draws batchSize transitions independently, with replacement,
// where transition i is drawn with probability
//
//	P(i) = priority_i^alpha / sum_k priority_k^alpha
//
// Each transition is returned with the importance sampling weight
// (N * P(i))^-beta, normalized by the largest weight in the batch,
// where N is the number of transitions in the buffer.
func (p *Prioritized) Sample(batchSize int, beta float64) (Batch, error) {
	if p.size == 0 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if batchSize < 1 {
		return Batch{}, fmt.Errorf("sample: batch size must be >= 1 "+
			"\n\twant(>=1)\n\thave(%v)", batchSize)
	}
	if batchSize > p.size {
		return Batch{}, &ExpReplayError{
			Op: "sample",
			Err: fmt.Errorf("%w \n\twant(<=%v)\n\thave(%v)",
				errInsufficientSamples, p.size, batchSize),
		}
	}
	if beta < 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return Batch{}, fmt.Errorf("sample: beta must be finite and "+
			"non-negative \n\twant(>=0)\n\thave(%v)", beta)
	}

	total := p.tree.total()
	indices := make([]int, batchSize)
	for i := range indices {
		index := p.tree.find(p.rng.Float64() * total)
		if index >= p.size {
			// Only reachable through round-off, the tree never descends
			// into empty leaves while its total is positive
			index = p.size - 1
		}
		indices[i] = index
	}

	weights := make([]float64, batchSize)
	maxWeight := 0.0
	n := float64(p.size)
	for i, index := range indices {
		prob := p.tree.get(index) / total
		weights[i] = math.Pow(n*prob, -beta)
		if weights[i] > maxWeight {
			maxWeight = weights[i]
		}
	}
	for i := range weights {
		weights[i] /= maxWeight
	}

	states := make([]float64, batchSize*p.featureSize)
	nextStates := make([]float64, batchSize*p.featureSize)
	rewards := make([]float64, batchSize*p.rewardSize)
	actions := make([]int, batchSize)
	terminal := make([]bool, batchSize)
	for i, index := range indices {
		batchStartInd := i * p.featureSize
		expStartInd := index * p.featureSize
		copy(states[batchStartInd:batchStartInd+p.featureSize],
			p.stateCache[expStartInd:expStartInd+p.featureSize],
		)
		copy(nextStates[batchStartInd:batchStartInd+p.featureSize],
			p.nextStateCache[expStartInd:expStartInd+p.featureSize],
		)

		copy(rewards[i*p.rewardSize:(i+1)*p.rewardSize],
			p.rewardCache[index*p.rewardSize:(index+1)*p.rewardSize],
		)

		actions[i] = p.actionCache[index]
		terminal[i] = p.terminalCache[index]
	}

	return Batch{
		States:     mat.NewDense(batchSize, p.featureSize, states),
		Actions:    actions,
		Rewards:    mat.NewDense(batchSize, p.rewardSize, rewards),
		NextStates: mat.NewDense(batchSize, p.featureSize, nextStates),
		Terminal:   terminal,
		Weights:    weights,
		Indices:    indices,
	}, nil
}

// UpdatePriorities sets the priority of the transition at each index in
// indices to the corresponding element of priorities. Priorities must
// be positive and finite, and every index must refer to a stored
// transition. No priority is changed if any argument is invalid.
func (p *Prioritized) UpdatePriorities(indices []int,
	priorities []float64) error {
	if len(indices) != len(priorities) {
		return fmt.Errorf("updatePriorities: indices and priorities must "+
			"have the same length \n\twant(%v)\n\thave(%v)", len(indices),
			len(priorities))
	}

	for i, index := range indices {
		if index < 0 || index >= p.size {
			return &ExpReplayError{
				Op: "updatePriorities",
				Err: fmt.Errorf("%w \n\twant([0, %v))\n\thave(%v)",
					errIndexOutOfRange, p.size, index),
			}
		}
		priority := priorities[i]
		if priority <= 0 || math.IsNaN(priority) || math.IsInf(priority, 0) {
			return &ExpReplayError{
				Op: "updatePriorities",
				Err: fmt.Errorf("%w \n\twant(>0)\n\thave(%v)",
					errInvalidPriority, priority),
			}
		}
	}

	for i, index := range indices {
		p.priorities[index] = priorities[i]
		p.tree.set(index, math.Pow(priorities[i], p.alpha))
		p.maxPriority = math.Max(p.maxPriority, priorities[i])
	}
	return nil
}

// At returns a copy of the transition stored at index and its
// priority
func (p *Prioritized) At(index int) (timestep.Transition, float64, error) {
	if index < 0 || index >= p.size {
		return timestep.Transition{}, 0, &ExpReplayError{
			Op: "at",
			Err: fmt.Errorf("%w \n\twant([0, %v))\n\thave(%v)",
				errIndexOutOfRange, p.size, index),
		}
	}

	state := make([]float64, p.featureSize)
	nextState := make([]float64, p.featureSize)
	copy(state, p.stateCache[index*p.featureSize:(index+1)*p.featureSize])
	copy(nextState,
		p.nextStateCache[index*p.featureSize:(index+1)*p.featureSize])

	reward := make([]float64, p.rewardSize)
	copy(reward, p.rewardCache[index*p.rewardSize:(index+1)*p.rewardSize])

	return timestep.Transition{
		State:     mat.NewVecDense(p.featureSize, state),
		Action:    p.actionCache[index],
		Reward:    reward,
		NextState: mat.NewVecDense(p.featureSize, nextState),
		Terminal:  p.terminalCache[index],
	}, p.priorities[index], nil
}

// Newest returns the index of the most recently added transition, or
// -1 if the buffer is empty
func (p *Prioritized) Newest() int {
	if p.size == 0 {
		return -1
	}
	return (p.currentInUsePos - 1 + p.maxCapacity) % p.maxCapacity
}

// String returns the string representation of the buffer
func (p *Prioritized) String() string {
	baseStr := "Prioritized | Size: %v  |  Capacity: %v  |  Alpha: %v  |  " +
		"Max Priority: %v"
	return fmt.Sprintf(baseStr, p.size, p.maxCapacity, p.alpha, p.maxPriority)
}
