package tracker

import "errors"

// Multi records every value in each of several Trackers
type Multi []Tracker

// NewMulti returns a Tracker which records values in all of trackers
func NewMulti(trackers ...Tracker) Multi {
	return Multi(trackers)
}

// Track implements the Tracker interface. Every Tracker is given the
// value even if an earlier one fails.
func (m Multi) Track(agent, metric string, step int, value float64) error {
	var errs []error
	for _, t := range m {
		if err := t.Track(agent, metric, step, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements the Tracker interface
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopCloser struct {
	Tracker
}

func (nopCloser) Close() error { return nil }

// NopClose returns a Tracker which records values in t but does
// nothing when closed, so that t can be shared with owners that close
// their Trackers
func NopClose(t Tracker) Tracker {
	return nopCloser{t}
}
