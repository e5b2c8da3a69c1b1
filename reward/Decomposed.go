// Package reward implements accumulators for rewards which are
// decomposed into several named reward types
package reward

import (
	"fmt"
	"sort"
)

// Decomposed accumulates rewards reported per reward type, both within
// a single step and across an episode.
//
// Every reward type is given a fixed ordinal at construction: its index
// in the lexicographically sorted list of reward types. Step reward
// vectors are always ordered by these ordinals, regardless of the order
// in which rewards were reported.
type Decomposed struct {
	types    []string
	ordinals map[string]int

	step    []float64
	episode []float64
	total   float64
}

// New returns a new Decomposed accumulator over the given reward types
func New(types []string) (*Decomposed, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("new: at least one reward type is required")
	}

	sorted := append([]string(nil), types...)
	sort.Strings(sorted)

	ordinals := make(map[string]int, len(sorted))
	for i, t := range sorted {
		if _, ok := ordinals[t]; ok {
			return nil, fmt.Errorf("new: duplicate reward type %q", t)
		}
		ordinals[t] = i
	}

	return &Decomposed{
		types:    sorted,
		ordinals: ordinals,
		step:     make([]float64, len(sorted)),
		episode:  make([]float64, len(sorted)),
	}, nil
}

// Add adds value to the step and episode accumulators of rewardType
// and to the scalar episode total. Add may be called any number of
// times per step.
func (d *Decomposed) Add(rewardType string, value float64) error {
	i, ok := d.ordinals[rewardType]
	if !ok {
		return fmt.Errorf("add: unknown reward type %q \n\twant(one of %v)"+
			"\n\thave(%q)", rewardType, d.types, rewardType)
	}

	d.step[i] += value
	d.episode[i] += value
	d.total += value
	return nil
}

// Ordinal returns the index of rewardType in reward vectors
func (d *Decomposed) Ordinal(rewardType string) (int, bool) {
	i, ok := d.ordinals[rewardType]
	return i, ok
}

// Types returns the reward types in ordinal order
func (d *Decomposed) Types() []string {
	return append([]string(nil), d.types...)
}

// Len returns the number of reward types
func (d *Decomposed) Len() int {
	return len(d.types)
}

// Vector returns a copy of the step accumulators in ordinal order
func (d *Decomposed) Vector() []float64 {
	return append([]float64(nil), d.step...)
}

// EpisodeVector returns a copy of the episode accumulators in ordinal
// order
func (d *Decomposed) EpisodeVector() []float64 {
	return append([]float64(nil), d.episode...)
}

// Step returns the step accumulator of rewardType
func (d *Decomposed) Step(rewardType string) float64 {
	if i, ok := d.ordinals[rewardType]; ok {
		return d.step[i]
	}
	return 0
}

// Episode returns the episode accumulator of rewardType
func (d *Decomposed) Episode(rewardType string) float64 {
	if i, ok := d.ordinals[rewardType]; ok {
		return d.episode[i]
	}
	return 0
}

// Total returns the scalar episode reward summed over all reward types
func (d *Decomposed) Total() float64 {
	return d.total
}

// ClearStep zeroes the step accumulators
func (d *Decomposed) ClearStep() {
	for i := range d.step {
		d.step[i] = 0
	}
}

// ClearEpisode zeroes the episode accumulators and the episode total
func (d *Decomposed) ClearEpisode() {
	for i := range d.episode {
		d.episode[i] = 0
	}
	d.total = 0
}

func (d *Decomposed) String() string {
	return fmt.Sprintf("Decomposed | Types: %v  |  Step: %v  |  "+
		"Episode: %v  |  Total: %.2f", d.types, d.step, d.episode, d.total)
}
