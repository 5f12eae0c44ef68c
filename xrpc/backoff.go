package xrpc

import (
	"time"
)

type BackoffState int

const (
	StateAttempting BackoffState = iota
	StateWaiting
	StateSucceeded
	StateFailed
	StateExhausted
)

func (s BackoffState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateWaiting:
		return "waiting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// statusNetworkError is the pseudo-status used for transport-level failures
// (timeout, connection reset). They follow the same backoff schedule as 5xx.
const statusNetworkError = 0

// Bounded retry schedule for a single call. The zero value is not useful;
// use DefaultBackoffPolicy.
type BackoffPolicy struct {
	// maximum attempts per fault class (throttle and server fault counters
	// are tracked separately by the client)
	MaxAttempts int
	// first wait of the exponential schedule
	BaseWait time.Duration
	// ceiling for the exponential schedule and for server-provided hints
	MaxWait time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: 5,
		BaseWait:    time.Second,
		MaxWait:     8 * time.Second,
	}
}

type BackoffStep struct {
	State BackoffState
	Wait  time.Duration
}

// Pure transition function: given the number of attempts already made on
// this counter, the status of the last attempt, and any server-provided
// retry hint, returns what to do next. No clock or network dependency.
func (p BackoffPolicy) Next(attempts int, status int, hint time.Duration) BackoffStep {
	if status >= 200 && status < 300 {
		return BackoffStep{State: StateSucceeded}
	}
	retryable := status == statusNetworkError || status == 429 || status >= 500
	if !retryable {
		return BackoffStep{State: StateFailed}
	}
	if attempts >= p.MaxAttempts {
		return BackoffStep{State: StateExhausted}
	}
	wait := p.exponentialWait(attempts)
	if status == 429 && hint > 0 {
		wait = hint
		if wait > p.MaxWait {
			wait = p.MaxWait
		}
	}
	return BackoffStep{State: StateWaiting, Wait: wait}
}

// 1s, 2s, 4s, 8s, 8s... for the defaults
func (p BackoffPolicy) exponentialWait(attempts int) time.Duration {
	wait := p.BaseWait
	for i := 1; i < attempts; i++ {
		wait *= 2
		if wait >= p.MaxWait {
			return p.MaxWait
		}
	}
	if wait > p.MaxWait {
		return p.MaxWait
	}
	return wait
}
