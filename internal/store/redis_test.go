package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisStatusRoundTrip(t *testing.T) {
	mr, c := newMiniredis(t)
	s := NewRedisStatus(c, time.Hour)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "job-1", Status{
		State:    "failed",
		Progress: 40,
		Message:  "export failed, please try again",
		Kind:     "degenerate_scale",
		Start:    &start,
		Metadata: map[string]interface{}{"pages": 4, "document_id": "doc-1"},
	}))

	st, ok, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "failed", st.State)
	assert.Equal(t, 40, st.Progress)
	assert.Equal(t, "degenerate_scale", st.Kind)
	require.NotNil(t, st.Start)
	assert.True(t, start.Equal(*st.Start))
	assert.Nil(t, st.End)
	assert.Equal(t, float64(4), st.Metadata["pages"])
	assert.Equal(t, "doc-1", st.Metadata["document_id"])

	assert.True(t, mr.Exists("export:job-1:status"))
	assert.Equal(t, time.Hour, mr.TTL("export:job-1:status"))

	mr.FastForward(2 * time.Hour)
	_, ok, err = s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok, "status expires with its ttl")

	require.NoError(t, s.Ping(ctx))
}

func TestRedisLockerSerializesDocument(t *testing.T) {
	mr, c := newMiniredis(t)
	l := NewRedisLocker(c, time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("export:lock:doc-1"))
	assert.Equal(t, time.Minute, mr.TTL("export:lock:doc-1"))

	_, err = l.Acquire(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, "doc-2")
	require.NoError(t, err, "documents lock independently")
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("export:lock:doc-1"))

	again, err := l.Acquire(ctx, "doc-1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLockerStaleReleaseKeepsNewHolder(t *testing.T) {
	mr, c := newMiniredis(t)
	l := NewRedisLocker(c, time.Minute)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "doc-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	current, err := l.Acquire(ctx, "doc-1")
	require.NoError(t, err, "expired lock can be taken over")

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("export:lock:doc-1"), "stale token must not delete the new lock")
	_, err = l.Acquire(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, current(ctx))
	assert.False(t, mr.Exists("export:lock:doc-1"))
}
