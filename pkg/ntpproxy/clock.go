package ntpproxy

import (
	"time"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
	"golang.org/x/sys/unix"
)

func GetSystemTime() ntp.TimestampEncoded {
	var unixTime unix.Timespec
	unix.ClockGettime(unix.CLOCK_REALTIME, &unixTime)
	return ntp.UnixToNTPTimestampEncoded(unixTime)
}

// Now reads CLOCK_REALTIME directly, so the window is computed from the
// same clock the upstream source is compared against.
func Now() time.Time {
	var unixTime unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &unixTime); err != nil {
		return time.Now().UTC()
	}
	return time.Unix(unixTime.Unix()).UTC()
}
