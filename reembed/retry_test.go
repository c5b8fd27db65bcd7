package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failUntil returns an operation failing with errTemporary until call n.
func failUntil(n int, calls *int) func() error {
	return func() error {
		*calls++
		if *calls < n {
			return errTemporary
		}
		return nil
	}
}

var errTemporary = errors.New("temporary error")

func TestRetryWithBackoff_Attempts(t *testing.T) {
	tests := []struct {
		name        string
		succeedOn   int
		maxAttempts int
		wantCalls   int
		wantErr     error
	}{
		{"first try", 1, 3, 1, nil},
		{"eventual success", 3, 5, 3, nil},
		{"exhausted", 10, 3, 3, errTemporary},
		{"single attempt", 2, 1, 1, errTemporary},
		{"zero attempts", 1, 0, 0, ErrInvalidMaxAttempts},
		{"negative attempts", 1, -1, 0, ErrInvalidMaxAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(context.Background(), failUntil(tt.succeedOn, &calls), tt.maxAttempts, time.Millisecond)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, err, "the last error is returned unwrapped")
		})
	}
}

func TestRetryWithBackoff_Permanent(t *testing.T) {
	cause := errors.New("bad input")
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return fmt.Errorf("batch 2: %w", Permanent(cause))
	}, 5, time.Millisecond)

	assert.Equal(t, 1, calls)
	assert.Equal(t, cause, err)
	assert.NoError(t, Permanent(nil))
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errTemporary
	}, 10, 10*time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoff_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		time.Sleep(30 * time.Millisecond)
		return errTemporary
	}, 10, 10*time.Millisecond)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, calls, 3)
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	var delays []time.Duration
	last := time.Now()
	calls := 0

	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls > 1 {
			delays = append(delays, time.Since(last))
		}
		last = time.Now()
		if calls < 4 {
			return errTemporary
		}
		return nil
	}, 5, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, delays, 3)

	assert.GreaterOrEqual(t, delays[0], 10*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, delays[2], 40*time.Millisecond)
}
