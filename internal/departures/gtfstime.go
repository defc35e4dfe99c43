package departures

import (
	"fmt"
	"time"
)

// ServiceDate returns midnight of now's calendar day in now's location.
// GTFS clock values are anchored to this instant.
func ServiceDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// ParseServiceTime converts a GTFS HH:MM:SS clock value into an absolute
// time on the given service date. GTFS allows hours past 23 for trips that
// run after midnight ("25:10:00" is 01:10 the next day); time.Date
// normalizes the overflow, which also keeps DST transitions correct.
func ParseServiceTime(clock string, serviceDate time.Time) (time.Time, error) {
	var h, m, s int
	if _, err := fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &s); err != nil {
		return time.Time{}, fmt.Errorf("invalid service time %q: %w", clock, err)
	}
	if h < 0 || m < 0 || m > 59 || s < 0 || s > 59 {
		return time.Time{}, fmt.Errorf("service time %q out of range", clock)
	}
	return time.Date(
		serviceDate.Year(), serviceDate.Month(), serviceDate.Day(),
		h, m, s, 0, serviceDate.Location(),
	), nil
}
