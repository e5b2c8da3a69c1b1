package checkpointer

import "fmt"

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	objects  []Saver
}

// NewNEpisode returns a checkpointer that saves each object at the end of
// every n-th episode. A non-positive n disables periodic checkpoints.
func NewNEpisode(n int, objects ...Saver) Checkpointer {
	return &nEpisode{
		interval: n,
		objects:  objects,
	}
}

// Checkpoint saves all tracked objects if episode is a multiple of the
// checkpointing interval
func (n *nEpisode) Checkpoint(episode int) error {
	if n.interval <= 0 || episode%n.interval != 0 {
		return nil
	}
	for i, object := range n.objects {
		if err := object.SaveNetwork(); err != nil {
			return fmt.Errorf("checkpoint: could not save object %v at "+
				"episode %v: %w", i, episode, err)
		}
	}
	return nil
}
