package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStatus is the single-process status store used when redis is not
// configured. Entries expire after ttl.
type MemoryStatus struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	st      Status
	expires time.Time
}

func NewMemoryStatus(ttl time.Duration) *MemoryStatus {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &MemoryStatus{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStatus) Set(_ context.Context, jobID string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.entries[jobID] = memoryEntry{st: copyStatus(st), expires: now.Add(s.ttl)}
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *MemoryStatus) Get(_ context.Context, jobID string) (Status, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[jobID]
	if !ok || s.now().After(e.expires) {
		return Status{}, false, nil
	}
	return copyStatus(e.st), true, nil
}

func copyStatus(st Status) Status {
	if st.Metadata != nil {
		m := make(map[string]interface{}, len(st.Metadata))
		for k, v := range st.Metadata {
			m[k] = v
		}
		st.Metadata = m
	}
	return st
}
