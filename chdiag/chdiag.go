// Package chdiag flags N+1-shaped usage of a Client: the same query text
// issued repeatedly in a short window, the way an ORM-style loop-per-row
// call pattern would.
package chdiag

import (
	"sync"
	"time"
)

// Alert reports that query has crossed the repetition threshold.
type Alert struct {
	Query string
	Count int
}

// Detector tracks per-query call frequency and raises an Alert the first
// time a query crosses Threshold occurrences within Window, then stays
// quiet on that query for Cooldown before alerting on it again.
type Detector struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	cooldown  time.Duration
	seen      map[string][]time.Time
	lastAlert map[string]time.Time
}

// New creates a Detector. threshold is the occurrence count that triggers
// an alert (e.g. 5); window is the time span counted within (e.g. 1s);
// cooldown is the minimum time between repeat alerts for the same query
// (e.g. 10s).
func New(threshold int, window, cooldown time.Duration) *Detector {
	return &Detector{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		seen:      make(map[string][]time.Time),
		lastAlert: make(map[string]time.Time),
	}
}

// Result is the outcome of one Record call.
type Result struct {
	// Matched is true whenever query is currently at or above the
	// threshold within the window.
	Matched bool
	// Alert is non-nil only the first time the threshold is crossed within
	// a cooldown period.
	Alert *Alert
}

// Record registers one occurrence of query at time t. Queries are compared
// as exact text; no normalization is applied.
func (d *Detector) Record(query string, t time.Time) Result {
	if query == "" {
		return Result{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := t.Add(-d.window)
	times := d.seen[query]
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	times = append(times[start:], t)
	d.seen[query] = times

	if len(times) < d.threshold {
		return Result{}
	}

	res := Result{Matched: true}
	if last, ok := d.lastAlert[query]; !ok || t.Sub(last) >= d.cooldown {
		d.lastAlert[query] = t
		res.Alert = &Alert{Query: query, Count: len(times)}
	}
	return res
}
