package clock

import "time"

// Clock provides the current time so services can be tested with a fixed one.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func New() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock is a settable Clock for tests.
type MockClock struct {
	CurrentTime time.Time
}

var _ Clock = (*MockClock)(nil)

func NewMock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t.UTC()}
}

func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}
