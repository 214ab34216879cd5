package hours

import (
	"strconv"
	"strings"
	"time"
)

// Business-hours evaluation for voicemail greeting switching.
//
// Two schedule generations coexist:
//   - The per-weekday schedule ("mon".."sun" windows) is the current model.
//     Windows are same-day only; an inverted window (start > end) is treated
//     as closed for that day rather than wrapping past midnight.
//   - The legacy single daily window predates per-weekday scheduling and DOES
//     support overnight wraparound. The asymmetry is intentional: unifying it
//     would change observable behavior for tenants still on legacy settings.

// DayWindow is one weekday's opening window in the tenant's local time.
type DayWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM"
	End     string `json:"end"`   // "HH:MM"
}

// WeeklySchedule maps weekday keys ("mon".."sun") to windows.
type WeeklySchedule map[string]DayWindow

// LegacyWindow is the pre-migration single daily window applied every day.
type LegacyWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

var weekdayKeys = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// IsOpen reports whether now falls inside the tenant's business hours.
//
// An unknown timezone falls back to UTC: a wrong greeting beats a dead line.
// With no weekly schedule and no enabled legacy window the tenant is treated
// as always open, so slot resolution never picks out-of-hours through this path.
func IsOpen(now time.Time, tzName string, weekly WeeklySchedule, legacy LegacyWindow) bool {
	loc, err := time.LoadLocation(strings.TrimSpace(tzName))
	if err != nil || tzName == "" {
		loc = time.UTC
	}
	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if len(weekly) > 0 {
		w, ok := weekly[weekdayKeys[local.Weekday()]]
		if !ok || !w.Enabled {
			return false
		}
		start, okS := parseClock(w.Start)
		end, okE := parseClock(w.End)
		if !okS || !okE {
			return false
		}
		if start > end {
			// Overnight spans are unsupported per-weekday.
			return false
		}
		return minute >= start && minute < end
	}

	if !legacy.Enabled {
		return true
	}
	start, okS := parseClock(legacy.Start)
	end, okE := parseClock(legacy.End)
	if !okS || !okE {
		return true
	}
	if start < end {
		return minute >= start && minute < end
	}
	// Overnight window, e.g. 22:00-06:00.
	return minute >= start || minute < end
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
