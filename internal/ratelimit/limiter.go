// Package ratelimit implements a per-key fixed-counter quota with expiry.
//
// The window is anchored to the time of the most recent counted call. Once a
// key has used its quota, further calls are rejected until a full window has
// elapsed since that call; the next counted call then restarts the count at 1.
// Entries are never evicted, so the map grows with the number of distinct keys
// for the life of the process.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	count int
	last  time.Time // time of the most recent counted call
}

// Limiter is a mutex-guarded per-key counter store.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	max     int
	now     func() time.Time
}

func New(window time.Duration, max int) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Allow reports whether key may make a call right now. When the quota is
// exhausted it returns the remaining cooldown in whole minutes, rounded down.
func (l *Limiter) Allow(key string) (ok bool, retryAfterMinutes int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[key]
	if !exists {
		return true, 0
	}
	elapsed := l.now().Sub(e.last)
	if e.count >= l.max && elapsed < l.window {
		remaining := int(l.window.Minutes()) - int(elapsed/time.Minute)
		return false, remaining
	}
	return true, 0
}

// Count records a counted call for key. A call made after a full window has
// elapsed restarts the count at 1; otherwise the count is incremented. The
// window anchor moves to now in both cases.
func (l *Limiter) Count(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{count: 1, last: now}
		return
	}
	if now.Sub(e.last) >= l.window {
		e.count = 1
	} else {
		e.count++
	}
	e.last = now
}
