package ntp

import (
	"math"
	"time"

	"golang.org/x/sys/unix"
)

const (
	EraLength     int64   = 4_294_967_296 // 2^32
	UnixEraOffset int64   = 2_208_988_800 // 1970 - 1900 in seconds
	ShortLength   float64 = 65536         // 2^16
	SecondsPerDay int64   = 86_400
)

func UnixToNTPTimestampEncoded(time unix.Timespec) TimestampEncoded {
	return TimestampEncoded((time.Sec+UnixEraOffset)<<32) +
		TimestampEncoded(float64(time.Nsec)/1e9*float64(EraLength))
}

func TimeToNTPTimestampEncoded(t time.Time) TimestampEncoded {
	return UnixToNTPTimestampEncoded(unix.NsecToTimespec(t.UnixNano()))
}

func NTPTimestampToTime(ntpTimestamp TimestampEncoded) time.Time {
	Sec := int64(ntpTimestamp >> 32)
	Usec := int32(math.Round(float64(int64(ntpTimestamp)-(Sec<<
		32)) / float64(EraLength) * 1e6))
	Sec -= UnixEraOffset
	return time.Unix(Sec, int64(Usec)*1e3)
}

func ShortToDouble(short ShortEncoded) float64 {
	return float64(short) / ShortLength
}

func Log2ToDouble(a int8) float64 {
	if a < 0 {
		return 1.0 / float64(int64(1)<<-a)
	}
	return float64(int64(1) << a)
}

// Seconds returns the integer seconds half of a timestamp.
func Seconds(ntpTimestamp TimestampEncoded) uint32 {
	return uint32(ntpTimestamp >> 32)
}

// Fraction returns the fractional half of a timestamp.
func Fraction(ntpTimestamp TimestampEncoded) uint32 {
	return uint32(ntpTimestamp)
}

func MakeTimestamp(seconds, fraction uint32) TimestampEncoded {
	return TimestampEncoded(seconds)<<32 | TimestampEncoded(fraction)
}

// AddSeconds shifts the seconds half by delta, wrapping modulo 2^32 like
// the wire field. The fraction is untouched.
func AddSeconds(ntpTimestamp TimestampEncoded, delta int64) TimestampEncoded {
	return MakeTimestamp(Seconds(ntpTimestamp)+uint32(delta), Fraction(ntpTimestamp))
}
