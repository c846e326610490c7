package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Status is the persisted view of one export job.
type Status struct {
	State    string                 `json:"state"`
	Progress int                    `json:"progress"`
	Message  string                 `json:"message"`
	Kind     string                 `json:"kind,omitempty"`
	Start    *time.Time             `json:"start_time,omitempty"`
	End      *time.Time             `json:"end_time,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DefaultStatusTTL bounds how long a finished job's status is kept.
const DefaultStatusTTL = 24 * time.Hour

// RedisStatus keeps one hash per job under export:{id}:status.
type RedisStatus struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

// Connect parses redisURL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

// NewRedisStatus wraps an existing client. ttl <= 0 uses DefaultStatusTTL.
func NewRedisStatus(c *redis.Client, ttl time.Duration) *RedisStatus {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &RedisStatus{client: c, keyNS: "export", ttl: ttl}
}

func (s *RedisStatus) key(jobID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }

func (s *RedisStatus) Set(ctx context.Context, jobID string, st Status) error {
	m := map[string]interface{}{
		"state":    st.State,
		"progress": st.Progress,
		"message":  st.Message,
		"kind":     st.Kind,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, err := json.Marshal(st.Metadata)
		if err != nil {
			return fmt.Errorf("marshal status metadata: %w", err)
		}
		m["metadata"] = string(b)
	}
	key := s.key(jobID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, m)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	st := Status{
		State:   res["state"],
		Message: res["message"],
		Kind:    res["kind"],
	}
	if p := res["progress"]; p != "" {
		// unparsable progress reads as 0
		st.Progress, _ = strconv.Atoi(p)
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st, true, nil
}

// Ping reports redis reachability for health checks.
func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStatus) Close() error { return s.client.Close() }

// Client returns the underlying Redis client
func (s *RedisStatus) Client() *redis.Client { return s.client }
