package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another export holds the document.
var ErrLocked = errors.New("document export already in progress")

// Release gives a lock back. Calling it more than once is harmless.
type Release func(ctx context.Context) error

// RedisLocker serializes exports per document across processes with
// SET NX PX and a token-checked delete.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(c *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{client: c, ttl: ttl}
}

func lockKey(documentID string) string { return fmt.Sprintf("export:lock:%s", documentID) }

func (l *RedisLocker) Acquire(ctx context.Context, documentID string) (Release, error) {
	token := uuid.NewString()
	key := lockKey(documentID)
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			err = unlockScript.Run(ctx, l.client, []string{key}, token).Err()
		})
		return err
	}, nil
}

// MemoryLocker serializes exports per document within one process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, documentID string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[documentID]; busy {
		return nil, ErrLocked
	}
	l.held[documentID] = struct{}{}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, documentID)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
