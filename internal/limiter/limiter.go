package limiter

import (
	"context"
	"strings"
	"sync"
)

// Limiter bounds in-flight work per key with one semaphore per key.
type Limiter struct {
	maxInflight int
	mu          sync.Mutex
	sem         map[string]chan struct{}
}

// New returns a limiter allowing maxInflight holders per key (minimum 1).
func New(maxInflight int) *Limiter {
	if maxInflight <= 0 {
		maxInflight = 1
	}
	return &Limiter{maxInflight: maxInflight, sem: map[string]chan struct{}{}}
}

func (l *Limiter) slot(key string) chan struct{} {
	key = strings.ToLower(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.sem[key]
	if !ok {
		ch = make(chan struct{}, l.maxInflight)
		l.sem[key] = ch
	}
	return ch
}

// Allow reserves a slot without waiting.
func (l *Limiter) Allow(key string) (func(), bool) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return releaser(ch), true
	default:
		return func() {}, false
	}
}

// Acquire waits for a slot until ctx is done.
func (l *Limiter) Acquire(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return releaser(ch), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports current holders for key.
func (l *Limiter) InFlight(key string) int { return len(l.slot(key)) }

func releaser(ch chan struct{}) func() {
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }
}
