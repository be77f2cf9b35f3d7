package ntpproxy

import (
	"sync/atomic"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
)

type Phase int

const (
	BeforeWindow Phase = iota
	AfterWindow
)

func (p Phase) String() string {
	if p == AfterWindow {
		return "after window"
	}
	return "before window"
}

// LeapState rewrites upstream responses. The relay loop is the only writer;
// crossed is atomic so status readers can look at it from other goroutines.
type LeapState struct {
	Window
	Polarity Polarity

	crossed atomic.Bool
}

func NewLeapState(window Window, polarity Polarity) *LeapState {
	return &LeapState{Window: window, Polarity: polarity}
}

func (s *LeapState) Phase() Phase {
	if s.crossed.Load() {
		return AfterWindow
	}
	return BeforeWindow
}

// Rewrite shifts the reference, receive and transmit seconds of an upstream
// response and reports which side of the boundary it was handled on. The
// first response whose shifted transmit time reaches the boundary moves the
// state to AfterWindow for good, and is itself rewritten as after.
func (s *LeapState) Rewrite(header *ntp.Header) Phase {
	switch s.Phase() {
	case BeforeWindow:
		shifted := int64(ntp.Seconds(header.Xmt)) + s.Offset
		if shifted >= s.Boundary {
			s.crossed.Store(true)
			info("Leap second window reached at", shifted, "boundary", s.Boundary)
			return s.after(header)
		}

		header.Leap = s.Polarity.LeapBits()
		shiftSeconds(header, s.Offset)
		return BeforeWindow
	default:
		return s.after(header)
	}
}

// The simulated clock has absorbed the leap second, so the leap bits are
// left as the upstream sent them.
func (s *LeapState) after(header *ntp.Header) Phase {
	shiftSeconds(header, s.Offset-int64(s.Polarity))
	return AfterWindow
}

// Originate stays untouched: it has to echo the client's transmit time.
func shiftSeconds(header *ntp.Header, delta int64) {
	header.Reftime = ntp.AddSeconds(header.Reftime, delta)
	header.Rec = ntp.AddSeconds(header.Rec, delta)
	header.Xmt = ntp.AddSeconds(header.Xmt, delta)
}

// RewritePacket rewrites the header of an encoded response in place.
// Anything after the header is relayed as received.
func (s *LeapState) RewritePacket(packet []byte) (Phase, error) {
	header, err := ntp.DecodeHeader(packet)
	if err != nil {
		return s.Phase(), err
	}

	phase := s.Rewrite(header)
	if err := ntp.PutHeader(packet, *header); err != nil {
		return phase, err
	}
	return phase, nil
}
