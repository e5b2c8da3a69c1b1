package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

var errEmptyCache error = errors.New("cache empty")

var errInsufficientSamples = errors.New("batch size exceeds buffer occupancy")

var errIndexOutOfRange = errors.New("index outside of buffer occupancy")

var errInvalidPriority = errors.New("priority must be positive and finite")

// IsInsufficientSamples returns whether or not an error reports that
// there are insufficient samples in the buffer to sample a batch.
//
// A buffer has too few samples if the requested batch size is larger
// than the number of transitions currently stored.
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, errInsufficientSamples)
}

// IsEmptyBuffer returns whether or not an error reports that a
// replay buffer is empty.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, errEmptyCache)
}

// IsIndexOutOfRange returns whether or not an error reports a priority
// update or lookup at an index that holds no transition
func IsIndexOutOfRange(err error) bool {
	return errors.Is(err, errIndexOutOfRange)
}

// IsInvalidPriority returns whether or not an error reports a
// non-positive, NaN, or infinite priority
func IsInvalidPriority(err error) bool {
	return errors.Is(err, errInvalidPriority)
}
