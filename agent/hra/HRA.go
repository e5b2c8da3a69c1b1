// Package hra implements an agent using the Hybrid Reward Architecture.
//
// The reward is decomposed into several named reward types. Each type
// is learned by its own value head, and actions are selected greedily
// with respect to the sum of the heads' action values. Experience is
// stored in a prioritized replay buffer and the eval model is trained
// against the bootstrapped targets of a periodically synced target
// model.
package hra

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aunum/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/hra/agent"
	"github.com/samuelfneumann/hra/experiment/checkpointer"
	"github.com/samuelfneumann/hra/experiment/tracker"
	"github.com/samuelfneumann/hra/expreplay"
	"github.com/samuelfneumann/hra/model"
	"github.com/samuelfneumann/hra/reward"
	"github.com/samuelfneumann/hra/schedule"
	ts "github.com/samuelfneumann/hra/timestep"
)

// Metric names recorded in the agent's Tracker
const (
	EpsilonMetric          = "Epsilon"
	BetaMetric             = "Beta"
	LossMetric             = "Loss"
	EpisodeRewardMetric    = "Episode Reward"
	DecomposedRewardMetric = "Decomposed Reward/"
)

// pending is the state and action of the previous call to Predict,
// which become a transition once the next state is known
type pending struct {
	state  *mat.VecDense
	action int
}

// HRA implements a Hybrid Reward Architecture agent. HRA implements
// the agent.Adaptive interface.
//
// An HRA agent is not safe for concurrent use.
type HRA struct {
	name    string
	choices []string
	config  Config

	eval   *model.Model // Trained every UpdateSteps steps
	target *model.Model // Synced from eval every UpdateFrequency steps

	replay  *expreplay.Prioritized
	rewards *reward.Decomposed

	epsilon schedule.ExponentialDecay
	beta    schedule.Linear
	rng     *rand.Rand

	store        checkpointer.Store
	checkpointer checkpointer.Checkpointer
	tracker      tracker.Tracker
	ctx          model.Context

	steps          int
	episode        int
	learning       bool
	pending        *pending
	currentEpsilon float64

	// Time spent in each phase during the current episode
	modelTime  time.Duration
	updateTime time.Duration
	fitTime    time.Duration
}

// Option configures the collaborators of an HRA agent
type Option func(*HRA)

// WithTracker sets the Tracker that records the agent's metrics. The
// agent closes the Tracker when it is closed.
func WithTracker(t tracker.Tracker) Option {
	return func(h *HRA) {
		h.tracker = t
	}
}

// WithStore sets the Store that holds the agent's model checkpoints
func WithStore(s checkpointer.Store) Option {
	return func(h *HRA) {
		h.store = s
	}
}

// WithContext sets the execution context of the agent's models
func WithContext(c model.Context) Option {
	return func(h *HRA) {
		h.ctx = c
	}
}

// New creates and returns a new HRA agent choosing among choices and
// learning one value head for each of rewardTypes.
//
// Unless set with options, metrics are kept in memory and checkpoints
// are written to c.CheckpointDir, or kept in memory if it is empty.
func New(name string, choices, rewardTypes []string, c Config,
	opts ...Option) (*HRA, error) {
	if name == "" {
		return nil, fmt.Errorf("new: agent name must not be empty")
	}
	if len(choices) < 1 {
		return nil, fmt.Errorf("new: at least one choice is required")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	rewards, err := reward.New(rewardTypes)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	epsilon, err := schedule.NewExponentialDecay(c.StartingEpsilon,
		c.DecayRate, c.DecaySteps, c.MinEpsilon)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	beta, err := schedule.NewLinear(c.BetaHorizon, c.BetaInitial,
		c.BetaFinal)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	replay, err := expreplay.NewPrioritized(c.MemorySize, c.Features,
		rewards.Len(), c.Alpha, c.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %w", err)
	}

	h := &HRA{
		name:     name,
		choices:  append([]string(nil), choices...),
		config:   c,
		replay:   replay,
		rewards:  rewards,
		epsilon:  epsilon,
		beta:     beta,
		rng:      rand.New(rand.NewSource(c.Seed)),
		ctx:      model.CPU(),
		learning: true,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.store == nil {
		if c.CheckpointDir != "" {
			h.store, err = checkpointer.NewFileStore(c.CheckpointDir)
			if err != nil {
				return nil, fmt.Errorf("new: %w", err)
			}
		} else {
			h.store = checkpointer.NewMemoryStore()
		}
	}
	if h.tracker == nil {
		h.tracker = tracker.NewMemory("")
	}

	h.eval, err = model.New(name+"_eval", c.Features, len(choices),
		rewards.Len(), c.BatchSize, c.Network, h.ctx, h.store)
	if err != nil {
		return nil, fmt.Errorf("new: could not create eval model: %w", err)
	}
	h.target, err = model.New(name+"_target", c.Features, len(choices),
		rewards.Len(), c.BatchSize, c.Network, h.ctx, h.store)
	if err != nil {
		h.eval.Close()
		return nil, fmt.Errorf("new: could not create target model: %w", err)
	}

	if err := h.initModels(); err != nil {
		h.eval.Close()
		h.target.Close()
		return nil, fmt.Errorf("new: %w", err)
	}

	h.checkpointer = checkpointer.NewNEpisode(c.SaveSteps, h.eval, h.target)
	return h, nil
}

// initModels restores both models from their checkpoints if requested,
// and otherwise starts the target model as a copy of the eval model.
// A missing checkpoint is not an error; the model starts fresh.
func (h *HRA) initModels() error {
	if !h.config.Restore {
		return h.target.Replace(h.eval)
	}

	for _, m := range []*model.Model{h.eval, h.target} {
		err := m.LoadNetwork()
		if errors.Is(err, checkpointer.ErrNotFound) {
			log.Infof("No checkpoint for %v, starting fresh", m.Name())
			continue
		}
		if err != nil {
			return fmt.Errorf("could not restore %v: %w", m.Name(), err)
		}
		log.Infof("Restored %v from checkpoint", m.Name())
	}
	return nil
}

// Name returns the name of the agent
func (h *HRA) Name() string {
	return h.name
}

// Choices returns the choices the agent selects among
func (h *HRA) Choices() []string {
	return append([]string(nil), h.choices...)
}

// RewardTypes returns the reward types of the agent in the order of
// its value heads
func (h *HRA) RewardTypes() []string {
	return h.rewards.Types()
}

// Steps returns the number of calls to Predict so far
func (h *HRA) Steps() int {
	return h.steps
}

// Episode returns the number of episodes ended since construction or
// since learning was disabled
func (h *HRA) Episode() int {
	return h.episode
}

// Learning returns whether the agent is still learning
func (h *HRA) Learning() bool {
	return h.learning
}

// Epsilon returns the exploration rate used by the last exploration
// decision
func (h *HRA) Epsilon() float64 {
	return h.currentEpsilon
}

// Reward reports value for rewardType in the current step
func (h *HRA) Reward(rewardType string, value float64) error {
	if err := h.rewards.Add(rewardType, value); err != nil {
		return fmt.Errorf("reward: %w", err)
	}
	return nil
}

// Predict selects an action in state.
//
// The state and action of the previous call are committed to the
// replay buffer together with the rewards reported since then. While
// learning, the action is random with probability ε and otherwise
// greedy with respect to the eval model, the target model is synced
// every UpdateFrequency steps, and the eval model is updated every
// UpdateSteps steps. After learning is disabled, actions are always
// greedy. If the sync or update fails, the error is returned but the
// chosen action is still recorded as pending.
func (h *HRA) Predict(state mat.Vector) (agent.Decision, error) {
	if state.Len() != h.config.Features {
		return agent.Decision{}, fmt.Errorf("predict: invalid state size "+
			"\n\twant(%v)\n\thave(%v)", h.config.Features, state.Len())
	}

	h.steps++

	if err := h.commit(state, false); err != nil {
		return agent.Decision{}, fmt.Errorf("predict: %w", err)
	}
	h.rewards.ClearStep()

	explore, err := h.shouldExplore()
	if err != nil {
		return agent.Decision{}, fmt.Errorf("predict: %w", err)
	}

	var decision agent.Decision
	if explore {
		decision = agent.Decision{
			Action:   h.rng.Intn(len(h.choices)),
			Explored: true,
		}
	} else {
		start := time.Now()
		action, q, combined, err := h.eval.Predict(state)
		if err != nil {
			return agent.Decision{}, fmt.Errorf("predict: %w", err)
		}
		h.modelTime += time.Since(start)

		decision = agent.Decision{
			Action:   action,
			QValues:  q,
			Combined: combined,
		}
	}
	decision.Choice = h.choices[decision.Action]

	// A failed sync or update must not drop this transition
	if h.learning {
		h.pending = &pending{
			state:  mat.VecDenseCopyOf(state),
			action: decision.Action,
		}
	}

	if h.learning && h.steps%h.config.UpdateFrequency == 0 {
		log.Debugf("Replacing target model for %v", h.name)
		if err := h.target.Replace(h.eval); err != nil {
			return agent.Decision{}, fmt.Errorf("predict: %w", err)
		}
	}

	if h.learning && h.steps%h.config.UpdateSteps == 0 {
		start := time.Now()
		if err := h.update(); err != nil {
			return agent.Decision{}, fmt.Errorf("predict: %w", err)
		}
		h.updateTime += time.Since(start)
	}

	return decision, nil
}

// commit adds the pending transition ending in nextState to the replay
// buffer, if there is one
func (h *HRA) commit(nextState mat.Vector, terminal bool) error {
	if h.pending == nil {
		return nil
	}

	t := ts.NewTransition(h.pending.state, h.pending.action,
		h.rewards.Vector(), nextState, terminal)
	if err := h.replay.Add(t); err != nil {
		return err
	}
	h.pending = nil
	return nil
}

// shouldExplore returns whether the next action should be random
func (h *HRA) shouldExplore() (bool, error) {
	if !h.learning {
		return false, nil
	}

	h.currentEpsilon = h.epsilon.Value(h.steps)
	err := h.tracker.Track(h.name, EpsilonMetric, h.steps, h.currentEpsilon)
	if err != nil {
		return false, err
	}
	return h.rng.Float64() < h.currentEpsilon, nil
}

// EndEpisode records the end of an episode in the final state.
//
// The last transition of the episode is committed as terminal, the
// episode's rewards are recorded and cleared, the models are
// checkpointed every SaveSteps episodes, and the eval model is updated.
// EndEpisode does nothing once learning is disabled.
func (h *HRA) EndEpisode(state mat.Vector) error {
	if !h.learning {
		return nil
	}
	if state.Len() != h.config.Features {
		return fmt.Errorf("endEpisode: invalid state size \n\twant(%v)"+
			"\n\thave(%v)", h.config.Features, state.Len())
	}

	h.episode++
	log.Infof("End of Episode %d with total reward %.2f", h.episode,
		h.rewards.Total())

	err := h.tracker.Track(h.name, EpisodeRewardMetric, h.episode,
		h.rewards.Total())
	if err != nil {
		return fmt.Errorf("endEpisode: %w", err)
	}
	for _, rewardType := range h.rewards.Types() {
		err := h.tracker.Track(h.name, DecomposedRewardMetric+rewardType,
			h.episode, h.rewards.Episode(rewardType))
		if err != nil {
			return fmt.Errorf("endEpisode: %w", err)
		}
	}

	if err := h.commit(state, true); err != nil {
		return fmt.Errorf("endEpisode: %w", err)
	}
	h.rewards.ClearStep()
	h.rewards.ClearEpisode()
	h.pending = nil

	if err := h.checkpointer.Checkpoint(h.episode); err != nil {
		return fmt.Errorf("endEpisode: %w", err)
	}

	start := time.Now()
	if err := h.update(); err != nil {
		return fmt.Errorf("endEpisode: %w", err)
	}
	h.updateTime += time.Since(start)

	log.Debugf("Model prediction time: %v, update time: %v, update fit "+
		"time: %v", h.modelTime, h.updateTime, h.fitTime)
	h.modelTime, h.updateTime, h.fitTime = 0, 0, 0

	return nil
}

// update performs a single update of the eval model on a prioritized
// batch of transitions and refreshes the priorities of the batch.
//
// The target of reward head k for a transition (s, a, r, s') is
//
//	r_k + γ * (1 - terminal) * B(Q_k(s', ·))
//
// where Q_k is the target model's head k and B aggregates its action
// values: the mean over actions by default, which is the value of
// each head under a uniformly random policy, or the max. The new
// priority of a transition is the absolute sum over heads of its TD
// errors plus PriorityEpsilon.
func (h *HRA) update() error {
	if h.steps <= h.config.BatchSize {
		return nil
	}

	beta := h.beta.Value(h.steps)
	if err := h.tracker.Track(h.name, BetaMetric, h.steps, beta); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	batch, err := h.replay.Sample(h.config.BatchSize, beta)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	start := time.Now()
	q, err := h.eval.PredictBatch(batch.States)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	qNext, err := h.target.PredictBatch(batch.NextStates)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	h.fitTime += time.Since(start)

	heads, size := h.rewards.Len(), batch.Size()
	targets := mat.NewDense(heads, size, nil)
	tdErrors := make([]float64, size)
	for k := 0; k < heads; k++ {
		for i := 0; i < size; i++ {
			next := 0.0
			if !batch.Terminal[i] {
				next = h.bootstrap(qNext[k].RawRowView(i))
			}
			target := batch.Rewards.At(i, k) + h.config.DiscountFactor*next
			targets.Set(k, i, target)

			tdErrors[i] += q[k].At(i, batch.Actions[i]) - target
		}
	}

	priorities := make([]float64, size)
	for i, td := range tdErrors {
		priorities[i] = math.Abs(td) + h.config.PriorityEpsilon
	}
	if err := h.replay.UpdatePriorities(batch.Indices, priorities); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	loss, err := h.eval.Fit(batch.States, batch.Actions, targets,
		batch.Weights, h.steps)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	if err := h.tracker.Track(h.name, LossMetric, h.steps, loss); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// bootstrap aggregates the next-state action values of one reward head
func (h *HRA) bootstrap(values []float64) float64 {
	if h.config.Bootstrap == BootstrapMax {
		return floats.Max(values)
	}
	return floats.Sum(values) / float64(len(values))
}

// DisableLearning checkpoints both models and permanently switches the
// agent to acting greedily without learning. The episode counter is
// reset so that evaluation episodes are counted from the start.
func (h *HRA) DisableLearning() error {
	log.Infof("Disabled Learning for %v agent", h.name)

	if err := h.eval.SaveNetwork(); err != nil {
		return fmt.Errorf("disableLearning: %w", err)
	}
	if err := h.target.SaveNetwork(); err != nil {
		return fmt.Errorf("disableLearning: %w", err)
	}

	h.learning = false
	h.episode = 0
	h.pending = nil
	h.rewards.ClearStep()
	h.rewards.ClearEpisode()
	return nil
}

// Close releases the agent's models and closes its Tracker
func (h *HRA) Close() error {
	return errors.Join(
		h.tracker.Close(),
		h.eval.Close(),
		h.target.Close(),
	)
}

func (h *HRA) String() string {
	str := "HRA | Name: %v  |  Choices: %v  |  Reward Types: %v  |  " +
		"Steps: %v  |  Episode: %v  |  Learning: %v"
	return fmt.Sprintf(str, h.name, h.choices, h.rewards.Types(), h.steps,
		h.episode, h.learning)
}
