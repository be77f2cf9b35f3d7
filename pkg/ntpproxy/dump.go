package ntpproxy

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
)

// FormatHeader renders a decoded header the way the verbose log prints it,
// followed by a hex dump of the raw bytes.
func FormatHeader(packet []byte) string {
	header, err := ntp.DecodeHeader(packet)
	if err != nil {
		return fmt.Sprintf("%v\n%s", err, hex.Dump(packet))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Leap=%02d, Ver=%02d, Mode=%02d, Stratum=%02d, ", header.Leap, header.Version, header.Mode, header.Stratum)
	fmt.Fprintf(&b, "Poll=%03d (%gs), Precision=%#02x (%.3gs), ", header.Poll, ntp.Log2ToDouble(header.Poll),
		uint8(header.Precision), ntp.Log2ToDouble(header.Precision))
	fmt.Fprintf(&b, "Delay=%.6f, Dispersion=%.6f, ", ntp.ShortToDouble(header.Rootdelay), ntp.ShortToDouble(header.Rootdisp))
	fmt.Fprintf(&b, "ReferenceID=%#x, ", header.Refid)
	fmt.Fprintf(&b, "ReferenceTS=%s, ", formatTimestamp(header.Reftime))
	fmt.Fprintf(&b, "OriginateTS=%s, ", formatTimestamp(header.Org))
	fmt.Fprintf(&b, "ReceiveTS=%s, ", formatTimestamp(header.Rec))
	fmt.Fprintf(&b, "TransmitTS=%s\n", formatTimestamp(header.Xmt))
	b.WriteString(hex.Dump(packet[:ntp.HeaderLength]))
	return b.String()
}

func formatTimestamp(ts ntp.TimestampEncoded) string {
	nanos := uint64(ntp.Fraction(ts)) * 1e9 >> 32
	return fmt.Sprintf("%d.%09d", ntp.Seconds(ts), nanos)
}
