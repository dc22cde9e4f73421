package rpc

import "time"

// BackoffPolicy maps a retry attempt number (1-based) to the delay to wait
// before that attempt.
type BackoffPolicy func(attempt int) time.Duration

// ExponentialBackoff doubles the base delay on each attempt:
// base, 2*base, 4*base, ...
func ExponentialBackoff(base time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			return 0
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
		}
		return d
	}
}

// ConstantBackoff waits the same delay on every attempt.
func ConstantBackoff(d time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			return 0
		}
		return d
	}
}
