package domain

import "time"

// Clock supplies the engine's notion of now. All duration and expiry
// comparisons go through it so tests can pin time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func RealClock() Clock {
	return realClock{}
}
