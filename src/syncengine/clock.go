package syncengine

import "time"

// Clock abstracts time for the retry scheduler so tests can advance virtual
// time instead of sleeping through real backoff delays.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending wake-up.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// NewClock returns a Clock backed by the time package.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
