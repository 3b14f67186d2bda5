package geocache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It backs tests and deployments that
// run without Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     *Entry
	size      int64
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	item, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if s.now().After(item.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	copied := *item.entry
	return &copied, true, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	copied := *entry
	s.mu.Lock()
	s.entries[key] = &memoryEntry{
		entry:     &copied,
		size:      int64(len(data)) + int64(len(key)),
		expiresAt: s.now().Add(ttl),
	}
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	now := s.now()
	for _, item := range s.entries {
		if now.Before(item.expiresAt) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Scan(_ context.Context, limit int) ([]KeyedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	result := make([]KeyedEntry, 0, len(s.entries))
	for key, item := range s.entries {
		if now.After(item.expiresAt) {
			continue
		}
		copied := *item.entry
		result = append(result, KeyedEntry{Key: key, Entry: &copied})
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryStore) MemoryUsage(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	now := s.now()
	for _, item := range s.entries {
		if now.Before(item.expiresAt) {
			total += item.size
		}
	}
	return total, nil
}

func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*memoryEntry)
	s.mu.Unlock()
	return nil
}
