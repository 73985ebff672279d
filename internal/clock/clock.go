package clock

import "time"

// Clock abstracts time.Now so expiry logic is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fake is a settable clock for tests.
type Fake struct {
	Current time.Time
}

func NewFake(t time.Time) *Fake {
	return &Fake{Current: t.UTC()}
}

func (f *Fake) Now() time.Time {
	return f.Current
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
