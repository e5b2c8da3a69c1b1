// Package checkpointer implements persistent storage of model
// checkpoints and the cadences at which they are saved
package checkpointer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a Store when no checkpoint exists under a
// name
var ErrNotFound = errors.New("checkpoint not found")

// Store persists named checkpoint blobs. Saving under an existing name
// overwrites the previous checkpoint.
type Store interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
}

// Saver is an object which can save itself to a Store
type Saver interface {
	SaveNetwork() error
}

// Checkpointer checkpoints objects at the end of episodes
type Checkpointer interface {
	Checkpoint(episode int) error
}

// validName returns an error if name cannot be used as a checkpoint
// name
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("checkpoint name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("illegal checkpoint name %q", name)
	}
	return nil
}
