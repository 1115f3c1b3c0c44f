package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxAttempts(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    int
	}{
		{"nil payload", nil, 3},
		{"missing", map[string]any{}, 3},
		{"json integer", map[string]any{"maxAttempts": float64(2)}, 2},
		{"go int", map[string]any{"maxAttempts": 5}, 5},
		{"lower bound", map[string]any{"maxAttempts": 1}, 1},
		{"zero", map[string]any{"maxAttempts": 0}, 3},
		{"too large", map[string]any{"maxAttempts": 6}, 3},
		{"fraction", map[string]any{"maxAttempts": 2.5}, 3},
		{"string", map[string]any{"maxAttempts": "2"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxAttempts(tt.payload))
		})
	}
}

func TestRetry_SucceedsAfterFailure(t *testing.T) {
	calls := 0

	result := Retry(context.Background(), 2, func(_ context.Context, attempt int) (string, error) {
		calls++
		if attempt == 1 {
			return "", errors.New("transient")
		}

		return "ok", nil
	})

	assert.NoError(t, result.Err)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, calls)
}

func TestRetry_Exhausts(t *testing.T) {
	calls := 0

	result := Retry(context.Background(), 3, func(_ context.Context, attempt int) (string, error) {
		calls++

		return "", errors.New("down")
	})

	assert.EqualError(t, result.Err, "down")
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
}

func TestRetry_IgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Retry(ctx, 2, func(context.Context, int) (string, error) {
		return "", errors.New("down")
	})

	assert.Equal(t, 2, result.Attempts)
}
