package ntpproxy

import (
	"time"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
)

// Number of days per month
var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Window is where the simulated clock sits relative to the real one.
type Window struct {
	Offset   int64 // seconds added to every outgoing timestamp
	Boundary int64 // NTP era seconds, shifted timeline, at which the leap applies
	Lead     int64 // seconds before midnight the simulated clock starts at
}

func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysToWindowEnd sums the days of every month from t's month up to the end
// of its half year, June or December.
func DaysToWindowEnd(t time.Time) int {
	t = t.UTC()
	last := time.June
	if t.Month() > time.June {
		last = time.December
	}

	days := 0
	for month := t.Month(); month <= last; month++ {
		if month == time.February && IsLeapYear(t.Year()) {
			days += 29
		} else {
			days += daysPerMonth[month-1]
		}
	}
	return days
}

// ComputeWindow fast-forwards now to lead seconds before the midnight that
// closes the current half year. It does not special case a now that is
// already past that midnight.
func ComputeWindow(now time.Time, lead int64) Window {
	now = now.UTC()
	unixNow := now.Unix()

	toMidnight := (unixNow/ntp.SecondsPerDay)*ntp.SecondsPerDay + ntp.SecondsPerDay - unixNow
	days := int64(DaysToWindowEnd(now) - now.Day())

	offset := days*ntp.SecondsPerDay + toMidnight - lead

	return Window{
		Offset:   offset,
		Boundary: unixNow + offset + lead + ntp.UnixEraOffset,
		Lead:     lead,
	}
}

// Simulated is the instant the downstream client will be shown for now.
func (w Window) Simulated(now time.Time) time.Time {
	return now.Add(time.Duration(w.Offset) * time.Second).UTC()
}

// LeapInstant is the boundary as wall-clock time.
func (w Window) LeapInstant() time.Time {
	return time.Unix(w.Boundary-ntp.UnixEraOffset, 0).UTC()
}
