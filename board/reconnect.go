package board

import (
	"time"
)

// reconnect tracks the backoff between connection attempts.
// Each After doubles the delay up to the max. Reset restores the
// minimum after a successful connection.
type reconnect struct {
	minTimeout time.Duration
	maxTimeout time.Duration

	timeout time.Duration
}

func newReconnect(minTimeout time.Duration, maxTimeout time.Duration) *reconnect {
	return &reconnect{
		minTimeout: minTimeout,
		maxTimeout: maxTimeout,
		timeout:    minTimeout,
	}
}

func (self *reconnect) After() <-chan time.Time {
	timeout := self.timeout
	self.timeout = min(2*self.timeout, self.maxTimeout)
	return time.After(timeout)
}

func (self *reconnect) Reset() {
	self.timeout = self.minTimeout
}
