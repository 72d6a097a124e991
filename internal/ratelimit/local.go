package ratelimit

import (
	"sync"
	"time"
)

// LocalStore is the in-process sliding-window log used when the shared
// store cannot answer. Windows are not shared between processes.
type LocalStore struct {
	mu        sync.Mutex
	windows   map[string][]time.Time
	lastSweep time.Time
}

func NewLocalStore() *LocalStore {
	return &LocalStore{windows: make(map[string][]time.Time)}
}

// Allow prunes timestamps at or before now-period, then admits the request
// iff fewer than requests remain, recording now on admission. Once per
// period it also drops windows of other keys that have fully expired.
func (s *LocalStore) Allow(key string, now time.Time, requests int, period time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= period {
		s.sweep(now, period)
	}

	cutoff := now.Add(-period)
	window := s.windows[key]

	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	window = window[i:]

	if len(window) >= requests {
		if len(window) == 0 {
			delete(s.windows, key)
		} else {
			s.windows[key] = window
		}
		return false
	}

	s.windows[key] = append(window, now)
	return true
}

// Sweep drops windows whose newest timestamp is at or before now-period and
// reports how many were removed.
func (s *LocalStore) Sweep(now time.Time, period time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(now, period)
}

func (s *LocalStore) sweep(now time.Time, period time.Duration) int {
	s.lastSweep = now
	cutoff := now.Add(-period)
	removed := 0
	for key, window := range s.windows {
		if len(window) == 0 || !window[len(window)-1].After(cutoff) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports how many keys currently hold a window.
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Count reports the timestamps currently held for key, without pruning.
func (s *LocalStore) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows[key])
}

// Reset drops every window.
func (s *LocalStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[string][]time.Time)
}
