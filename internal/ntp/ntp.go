package ntp

type TimestampEncoded = uint64

type ShortEncoded = uint32

type Mode byte

const (
	RESERVED Mode = iota
	SYMMETRIC_ACTIVE
	SYMMETRIC_PASSIVE
	CLIENT
	SERVER
	BROADCAST_SERVER
	BROADCAST_CLIENT // Also NTP_CONTROL_MESSAGE?
	RESERVED_PRIVATE_USE
)

func (m Mode) String() string {
	switch m {
	case RESERVED:
		return "reserved"
	case SYMMETRIC_ACTIVE:
		return "symmetric active"
	case SYMMETRIC_PASSIVE:
		return "symmetric passive"
	case CLIENT:
		return "client"
	case SERVER:
		return "server"
	case BROADCAST_SERVER:
		return "broadcast"
	case BROADCAST_CLIENT:
		return "control"
	default:
		return "private"
	}
}

// Leap indicator values, stored in the two high bits of the first byte.
const (
	NOWARNING byte = iota /* no warning */
	LEAPINS               /* last minute of the day has 61 seconds */
	LEAPDEL               /* last minute of the day has 59 seconds */
	NOSYNC                /* clock unsynchronized */
)

const (
	Port         = "123" // NTP port number
	HeaderLength = 48    // header without extension fields or MAC
)

// Status is the relay's view of the leap window, served over RPC.
type Status struct {
	Source   string
	Polarity int
	Lead     int64

	Offset   int64 /* seconds added to outgoing timestamps */
	Boundary int64 /* leap instant, NTP era seconds */
	Crossed  bool

	Queries   uint64
	Rejected  uint64
	Relayed   uint64
	Dropped   uint64
	LastPeer  string
	LastXmt   TimestampEncoded /* last rewritten transmit timestamp */
	StartedAt TimestampEncoded
}
