package tracker

import (
	"fmt"

	"github.com/gammazero/deque"
)

// RollingSuffix is appended to the name of a metric to name its
// rolling mean
const RollingSuffix = "/Rolling Mean"

// Rolling wraps a Tracker and additionally records the mean of the last
// window values of selected metrics. Every value is passed through to
// the wrapped Tracker unchanged.
type Rolling struct {
	Tracker
	window  int
	metrics map[string]bool
	windows map[Key]*deque.Deque[float64]
	sums    map[Key]float64
}

// NewRolling returns a new Rolling Tracker which records the rolling
// mean of each of metrics over window values
func NewRolling(t Tracker, window int, metrics ...string) (*Rolling, error) {
	if window < 1 {
		return nil, fmt.Errorf("newRolling: window must be >= 1 \n\twant(>=1)"+
			"\n\thave(%v)", window)
	}

	selected := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		selected[m] = true
	}
	return &Rolling{
		Tracker: t,
		window:  window,
		metrics: selected,
		windows: make(map[Key]*deque.Deque[float64]),
		sums:    make(map[Key]float64),
	}, nil
}

// Track implements the Tracker interface
func (r *Rolling) Track(agent, metric string, step int, value float64) error {
	if err := r.Tracker.Track(agent, metric, step, value); err != nil {
		return err
	}
	if !r.metrics[metric] {
		return nil
	}

	key := Key{Agent: agent, Metric: metric}
	window, ok := r.windows[key]
	if !ok {
		window = deque.New[float64](r.window)
		r.windows[key] = window
	}

	window.PushBack(value)
	r.sums[key] += value
	if window.Len() > r.window {
		r.sums[key] -= window.PopFront()
	}

	mean := r.sums[key] / float64(window.Len())
	return r.Tracker.Track(agent, metric+RollingSuffix, step, mean)
}

// Mean returns the current rolling mean of metric for agent and whether
// any value has been recorded
func (r *Rolling) Mean(agent, metric string) (float64, bool) {
	key := Key{Agent: agent, Metric: metric}
	window, ok := r.windows[key]
	if !ok || window.Len() == 0 {
		return 0, false
	}
	return r.sums[key] / float64(window.Len()), true
}
