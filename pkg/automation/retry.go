package automation

import (
	"context"
	"math"
)

const (
	DefaultMaxAttempts = 3
	MaxAttemptsLimit   = 5

	maxAttemptsField = "maxAttempts"
)

// RetryResult is the outcome of running one action under its attempt budget.
type RetryResult struct {
	Attempts int
	Output   string
	Err      error
}

// AttemptFunc performs a single attempt. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) (string, error)

// Retry calls fn until it succeeds or maxAttempts attempts have failed. There is no back-off and
// cancellation does not interrupt the loop; the last error is returned.
func Retry(ctx context.Context, maxAttempts int, fn AttemptFunc) RetryResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var result RetryResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		output, err := fn(ctx, attempt)
		if err == nil {
			result.Output = output
			result.Err = nil

			return result
		}

		result.Err = err
	}

	return result
}

// MaxAttempts reads payload.maxAttempts. Only integer values within [1, MaxAttemptsLimit] are
// honored; anything else yields DefaultMaxAttempts.
func MaxAttempts(payload map[string]any) int {
	if payload == nil {
		return DefaultMaxAttempts
	}

	var value float64

	switch n := payload[maxAttemptsField].(type) {
	case int:
		value = float64(n)
	case int32:
		value = float64(n)
	case int64:
		value = float64(n)
	case uint:
		value = float64(n)
	case uint64:
		value = float64(n)
	case float32:
		value = float64(n)
	case float64:
		value = n
	default:
		return DefaultMaxAttempts
	}

	if value != math.Trunc(value) || value < 1 || value > MaxAttemptsLimit {
		return DefaultMaxAttempts
	}

	return int(value)
}
