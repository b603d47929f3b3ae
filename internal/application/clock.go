package application

import "time"

// Clock abstraction supaya timestamp gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock default implementation, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns the same instant every call; test helper.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
