package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Memory keeps time series in memory. If it was created with a
// filename, all series are gob-encoded to that file when it is closed,
// and can be read back with LoadData.
type Memory struct {
	series   map[Key][]Point
	filename string
	closed   bool
}

// NewMemory returns a new Memory Tracker which saves its data to
// filename on Close. An empty filename keeps the data in memory only.
func NewMemory(filename string) *Memory {
	return &Memory{
		series:   make(map[Key][]Point),
		filename: filename,
	}
}

// Track implements the Tracker interface
func (m *Memory) Track(agent, metric string, step int, value float64) error {
	if m.closed {
		return fmt.Errorf("track: tracker closed")
	}
	key := Key{Agent: agent, Metric: metric}
	m.series[key] = append(m.series[key], Point{Step: step, Value: value})
	return nil
}

// Series returns a copy of the time series of metric recorded by agent
func (m *Memory) Series(agent, metric string) ([]Point, error) {
	points := m.series[Key{Agent: agent, Metric: metric}]
	return append([]Point(nil), points...), nil
}

// Keys returns the keys of all recorded time series in sorted order
func (m *Memory) Keys() ([]Key, error) {
	keys := make([]Key, 0, len(m.series))
	for key := range m.series {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys, nil
}

// Save saves all time series to the Tracker's file
func (m *Memory) Save() error {
	file, err := os.Create(m.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(m.series); err != nil {
		return fmt.Errorf("save: could not encode data: %w", err)
	}
	return nil
}

// Close implements the Tracker interface
func (m *Memory) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.filename == "" {
		return nil
	}
	return m.Save()
}
