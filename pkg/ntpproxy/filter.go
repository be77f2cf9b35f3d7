package ntpproxy

import (
	"errors"
	"fmt"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
)

var ErrNotClient = errors.New("not a client query")

// Accept reports whether a downstream datagram may be forwarded upstream.
// Only complete client-mode headers pass.
func Accept(datagram []byte) error {
	if len(datagram) < ntp.HeaderLength {
		return fmt.Errorf("%w: %d bytes", ntp.ErrShortPacket, len(datagram))
	}
	if mode := ntp.ModeOf(datagram[0]); mode != ntp.CLIENT {
		return fmt.Errorf("%w: mode %02d (%s)", ErrNotClient, mode, mode)
	}
	return nil
}
