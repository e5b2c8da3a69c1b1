// Package agent defines the interface between episode drivers and
// adaptive agents which learn from decomposed rewards
package agent

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Decision is the outcome of a single call to Predict
type Decision struct {
	// Action is the index of the selected choice
	Action int

	// Choice is the selected choice
	Choice string

	// QValues holds the action values of each reward head and Combined
	// their sum across heads. Both are nil if the action was chosen by
	// exploration rather than by the value model.
	QValues  [][]float64
	Combined []float64

	Explored bool
}

func (d Decision) String() string {
	if d.Explored {
		return fmt.Sprintf("Decision | Choice: %v  |  Explored", d.Choice)
	}
	return fmt.Sprintf("Decision | Choice: %v  |  Combined Q: %.3f", d.Choice,
		d.Combined)
}

// Rewarder receives rewards of named reward types. Rewards for the
// same type may be reported several times per step and are summed.
type Rewarder interface {
	Reward(rewardType string, value float64) error
}

// Adaptive is an agent driven in lock-step by an external driver. Each
// step the driver calls Predict, applies the decision to its
// environment, and reports the resulting rewards. At the end of each
// episode the driver calls EndEpisode with the final state.
type Adaptive interface {
	Rewarder

	// Predict selects an action in state
	Predict(state mat.Vector) (Decision, error)

	// EndEpisode records the end of an episode in the final state
	EndEpisode(state mat.Vector) error

	// DisableLearning permanently switches the agent to acting greedily
	// without learning
	DisableLearning() error

	// Close releases all resources held by the agent
	Close() error
}
