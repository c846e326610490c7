package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowPerKey(t *testing.T) {
	l := New(2)
	r1, ok := l.Allow("html")
	require.True(t, ok)
	r2, ok := l.Allow("HTML")
	require.True(t, ok)
	_, ok = l.Allow("html")
	assert.False(t, ok, "third holder exceeds limit")

	_, ok = l.Allow("pdf")
	assert.True(t, ok, "keys are independent")

	r1()
	r1()
	assert.Equal(t, 1, l.InFlight("html"))
	r2()
	assert.Equal(t, 0, l.InFlight("html"))
}

func TestAcquireWaitsForContext(t *testing.T) {
	l := New(1)
	release, err := l.Acquire(context.Background(), "html")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "html")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan struct{})
	go func() {
		r, err := l.Acquire(context.Background(), "html")
		if err == nil {
			r()
		}
		close(done)
	}()
	release()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released")
	}
}
