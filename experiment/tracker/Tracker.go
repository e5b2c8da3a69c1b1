// Package tracker implements sinks for the scalar time series that
// agents record during training, such as exploration rates, losses, and
// episode rewards
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
)

// Key identifies a time series by the agent which recorded it and the
// name of the metric
type Key struct {
	Agent  string
	Metric string
}

func (k Key) String() string {
	return k.Agent + "/" + k.Metric
}

// Point is a single value of a time series. Step is the step or episode
// index the value was recorded at.
type Point struct {
	Step  int
	Value float64
}

// Tracker records scalar time series keyed by agent and metric name.
// A Tracker is opened at construction and must be closed by its owner,
// after which any buffered data has been flushed.
type Tracker interface {
	Track(agent, metric string, step int, value float64) error
	Close() error
}

// Reader is a Tracker whose time series can be read back
type Reader interface {
	Tracker
	Series(agent, metric string) ([]Point, error)
	Keys() ([]Key, error)
}

// LoadData loads the time series saved by a Memory Tracker
func LoadData(filename string) (map[Key][]Point, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %w", err)
	}
	defer file.Close()

	var data map[Key][]Point
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %w", err)
	}
	return data, nil
}

// sortKeys sorts keys by agent and then by metric
func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Agent != keys[j].Agent {
			return keys[i].Agent < keys[j].Agent
		}
		return keys[i].Metric < keys[j].Metric
	})
}
