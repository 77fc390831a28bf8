package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type statusErr int

func (s statusErr) Error() string       { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(fmt.Errorf("wrap: %w", statusErr(429))))
	assert.True(t, IsRetryableError(statusErr(503)))
	assert.False(t, IsRetryableError(statusErr(400)))
	assert.False(t, IsRetryableError(errors.New("bad json")))
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, time.Second, RetryAfter(h, time.Second, time.Minute))
	h.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, RetryAfter(h, time.Second, time.Minute))
	assert.Equal(t, 5*time.Second, RetryAfter(h, time.Second, 5*time.Second))
}

func TestBackoffBounded(t *testing.T) {
	for attempt := 0; attempt < 40; attempt++ {
		d := Backoff(attempt, 500*time.Millisecond, 8*time.Second)
		assert.LessOrEqual(t, d, time.Duration(float64(8*time.Second)*1.2))
		assert.Greater(t, d, time.Duration(0))
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
