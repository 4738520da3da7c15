// Package ratelimit bounds how often a single user may trigger generation.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultBurst  = 3
)

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
}

// Err returns a *ThrottledError for a rejected decision and nil otherwise.
func (d Decision) Err() error {
	if d.Admitted {
		return nil
	}
	return &ThrottledError{RetryAfter: d.RetryAfter}
}

// ThrottledError reports that a user exhausted their burst for the window.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

type record struct {
	mu     sync.Mutex
	stamps []time.Time
	// dead marks a record removed by Sweep; holders must look it up again.
	dead bool
}

// Limiter is a per-user sliding window. A record never holds more than
// burst timestamps, and every one of them lies inside the trailing window.
type Limiter struct {
	window time.Duration
	burst  int

	mu      sync.Mutex
	records map[string]*record
}

func New(window time.Duration, burst int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if burst < 1 {
		burst = DefaultBurst
	}
	return &Limiter{
		window:  window,
		burst:   burst,
		records: make(map[string]*record),
	}
}

func (l *Limiter) Window() time.Duration { return l.window }
func (l *Limiter) Burst() int            { return l.burst }

func (l *Limiter) record(userID string) *record {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[userID]
	if !ok {
		r = &record{stamps: make([]time.Time, 0, l.burst)}
		l.records[userID] = r
	}
	return r
}

// Admit checks userID against the window ending at now and, when admitted,
// records the attempt.
func (l *Limiter) Admit(userID string, now time.Time) Decision {
	for {
		r := l.record(userID)
		r.mu.Lock()
		if r.dead {
			r.mu.Unlock()
			continue
		}
		d := l.admitLocked(r, now)
		r.mu.Unlock()
		return d
	}
}

func (l *Limiter) admitLocked(r *record, now time.Time) Decision {
	r.stamps = l.prune(r.stamps, now)
	if len(r.stamps) >= l.burst {
		retry := r.stamps[0].Add(l.window).Sub(now)
		if retry <= 0 {
			retry = time.Nanosecond
		}
		return Decision{RetryAfter: retry}
	}
	r.stamps = append(r.stamps, now)
	return Decision{Admitted: true}
}

// prune drops stamps that have left the window (ts + window <= now).
func (l *Limiter) prune(stamps []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].Add(l.window).After(now) {
		i++
	}
	if i == 0 {
		return stamps
	}
	n := copy(stamps, stamps[i:])
	return stamps[:n]
}

// Sweep forgets users with no attempts left in the window and returns how
// many records were dropped.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for id, r := range l.records {
		r.mu.Lock()
		r.stamps = l.prune(r.stamps, now)
		if len(r.stamps) == 0 {
			r.dead = true
			delete(l.records, id)
			dropped++
		}
		r.mu.Unlock()
	}
	return dropped
}

// Users returns the number of tracked users.
func (l *Limiter) Users() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
