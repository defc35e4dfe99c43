package departures

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock position expressed as seconds since midnight,
// in the range [0, 86400).
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		sec = 0
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid time of day %q (want HH:MM or HH:MM:SS)", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/3600, int(t)%3600/60)
}

// Window is a daily interval during which polling is suppressed. Start and
// End are compared half-open: a departure window of [Start, End). When Start
// is later than End the window wraps past midnight. Start equal to End means
// the window is disabled.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Enabled reports whether the window suppresses anything at all.
func (w Window) Enabled() bool {
	return w.Start != w.End
}

// Contains reports whether t falls inside the window. The clock position is
// taken from t's own location, so callers decide the timezone by converting
// first.
func (w Window) Contains(t time.Time) bool {
	if w.Start == w.End {
		return false
	}
	tod := TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
	if w.Start < w.End {
		return tod >= w.Start && tod < w.End
	}
	// Wraps midnight: suppressed late evening or early morning.
	return tod >= w.Start || tod < w.End
}
