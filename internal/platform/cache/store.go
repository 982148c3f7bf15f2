package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is a bounded in-process byte cache with per-entry expiry.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// NewStore creates a store holding at most maxEntries items. maxEntries <= 0
// means unbounded.
func NewStore(maxEntries int) *Store {
	return &Store{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && current.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true
}

// Set replaces the entry for key. ttl <= 0 stores without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if key == "" {
		return
	}

	now := s.now()
	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictExpired(now)
		if len(s.entries) >= s.maxEntries {
			s.evictSoonest()
		}
	}

	s.entries[key] = entry{
		value:     stored,
		expiresAt: expiresAt,
	}
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// PurgeExpired drops every expired entry and reports how many were removed.
func (s *Store) PurgeExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictExpired(now)
}

func (s *Store) evictExpired(now time.Time) int {
	removed := 0
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// evictSoonest drops the entry closest to expiry; entries without expiry go last.
func (s *Store) evictSoonest() {
	victim := ""
	var victimAt time.Time
	for key, e := range s.entries {
		if victim == "" {
			victim, victimAt = key, e.expiresAt
			continue
		}
		if e.expiresAt.IsZero() {
			continue
		}
		if victimAt.IsZero() || e.expiresAt.Before(victimAt) {
			victim, victimAt = key, e.expiresAt
		}
	}
	if victim != "" {
		delete(s.entries, victim)
	}
}
