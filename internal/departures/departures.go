// Package departures holds the pure selection logic for upcoming departures
// at a single stop. Nothing in here performs I/O or reads the wall clock;
// callers pass the current time in, which keeps every function deterministic
// and directly testable.
package departures

import (
	"sort"
	"time"
)

// Departure is one scheduled service calling at a stop. Realtime is the
// provider-adjusted departure time when the realtime feed had an update for
// the trip, nil otherwise.
type Departure struct {
	TripID      string
	Route       string
	Destination string
	Scheduled   time.Time
	Realtime    *time.Time
}

// Effective returns the realtime-adjusted departure time when one is known,
// the scheduled time otherwise.
func (d Departure) Effective() time.Time {
	if d.Realtime != nil {
		return *d.Realtime
	}
	return d.Scheduled
}

// Result is the outcome of one selection pass. Next is nil when no upcoming
// departure exists; Upcoming holds at most the configured maximum, with Next
// duplicated as its first entry.
type Result struct {
	Next     *Departure
	Upcoming []Departure
	PolledAt time.Time
}

// Select filters raw down to departures whose effective time is strictly
// after now, orders them ascending by effective time and truncates to max
// entries. Equal effective times keep their input order. The input slice is
// not modified, and the same inputs always produce the same result.
func Select(raw []Departure, now time.Time, max int) Result {
	upcoming := make([]Departure, 0, len(raw))
	for _, d := range raw {
		if d.Effective().After(now) {
			upcoming = append(upcoming, d)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Effective().Before(upcoming[j].Effective())
	})

	res := Result{PolledAt: now}
	if len(upcoming) == 0 {
		return res
	}

	next := upcoming[0]
	res.Next = &next

	if max < 0 {
		max = 0
	}
	if len(upcoming) > max {
		upcoming = upcoming[:max]
	}
	res.Upcoming = upcoming
	return res
}
