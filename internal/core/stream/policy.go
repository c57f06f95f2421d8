package stream

import (
	"math"
	"time"
)

// Policy is the reconnect schedule of the push connection.
type Policy struct {
	BaseDelay   time.Duration
	Factor      float64
	MaxAttempts int
}

// DefaultPolicy waits 2s, 3s, 4.5s, 6.75s and 10.125s before giving up.
var DefaultPolicy = Policy{
	BaseDelay:   2 * time.Second,
	Factor:      1.5,
	MaxAttempts: 5,
}

// Delay returns the wait before reconnect attempt n, counted from zero.
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(n)))
}

// Allows reports whether reconnect attempt n may still be scheduled.
func (p Policy) Allows(n int) bool {
	return n < p.MaxAttempts
}
