package core

import (
	"fmt"
	"sync"
)

// StepLimiter enforces a maximum number of coordinator iterations (or model
// calls) per turn. A max of 0 means unlimited.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a limiter with the given cap.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment bumps the counter and returns an error once the cap is exceeded.
func (l *StepLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max steps: %d", l.max)
	}
	return nil
}

// Count returns the number of steps taken so far.
func (l *StepLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Remaining returns how many steps are left, or -1 when unlimited.
func (l *StepLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max == 0 {
		return -1
	}
	return l.max - l.count
}
