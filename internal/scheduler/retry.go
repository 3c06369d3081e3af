package scheduler

import "time"

// RetryPolicy bounds the per-firing execution loop: every firing gets
// MaxAttempts tries with a fixed Delay between consecutive tries.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// normalize 填充零值，保证至少执行一次。
func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Delay <= 0 {
		p.Delay = 5 * time.Second
	}
	return p
}
