package ntpproxy

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
)

var juneScenarioNow = time.Date(2015, time.June, 30, 23, 49, 30, 0, time.UTC)

func ntpSeconds(t time.Time) uint32 {
	return uint32(t.Unix() + ntp.UnixEraOffset)
}

// upstreamResponse is what an unaware server sends at real time xmt.
func upstreamResponse(xmt time.Time) *ntp.Header {
	return &ntp.Header{
		Leap:    ntp.NOWARNING,
		Version: 4,
		Mode:    ntp.SERVER,
		NtpFieldsEncoded: ntp.NtpFieldsEncoded{
			Stratum:   1,
			Poll:      4,
			Precision: -20,
			Rootdelay: 0x10,
			Rootdisp:  0x20,
			Refid:     0x47505300,
			Reftime:   ntp.MakeTimestamp(ntpSeconds(xmt)-16, 0x11111111),
			Org:       ntp.MakeTimestamp(ntpSeconds(xmt), 0xabcdef01),
			Rec:       ntp.MakeTimestamp(ntpSeconds(xmt), 0x33333333),
			Xmt:       ntp.MakeTimestamp(ntpSeconds(xmt), 0x44444444),
		},
	}
}

func checkShifted(t *testing.T, got, original *ntp.Header, delta int64) {
	t.Helper()

	pairs := []struct {
		name      string
		got, orig ntp.TimestampEncoded
	}{
		{"reference", got.Reftime, original.Reftime},
		{"receive", got.Rec, original.Rec},
		{"transmit", got.Xmt, original.Xmt},
	}
	for _, p := range pairs {
		if want := ntp.Seconds(p.orig) + uint32(delta); ntp.Seconds(p.got) != want {
			t.Errorf("%s seconds = %d, want %d", p.name, ntp.Seconds(p.got), want)
		}
		if ntp.Fraction(p.got) != ntp.Fraction(p.orig) {
			t.Errorf("%s fraction changed: %#x -> %#x", p.name, ntp.Fraction(p.orig), ntp.Fraction(p.got))
		}
	}

	if got.Org != original.Org {
		t.Errorf("originate changed: %#x -> %#x", original.Org, got.Org)
	}
	if got.Version != original.Version || got.Mode != original.Mode {
		t.Errorf("version/mode changed: %d/%d -> %d/%d", original.Version, original.Mode, got.Version, got.Mode)
	}
	if got.Stratum != original.Stratum || got.Poll != original.Poll || got.Precision != original.Precision ||
		got.Rootdelay != original.Rootdelay || got.Rootdisp != original.Rootdisp || got.Refid != original.Refid {
		t.Errorf("pass-through fields changed: %+v -> %+v", original.NtpFieldsEncoded, got.NtpFieldsEncoded)
	}
}

func TestRewriteBeforeWindow(t *testing.T) {
	for _, polarity := range []Polarity{Insert, Delete} {
		t.Run(polarity.String(), func(t *testing.T) {
			state := NewLeapState(ComputeWindow(juneScenarioNow, 600), polarity)

			original := upstreamResponse(juneScenarioNow)
			header := *original
			if phase := state.Rewrite(&header); phase != BeforeWindow {
				t.Fatalf("phase = %s, want before window", phase)
			}

			if header.Leap != polarity.LeapBits() {
				t.Errorf("leap = %d, want %d", header.Leap, polarity.LeapBits())
			}
			checkShifted(t, &header, original, state.Offset)

			simulated := ntp.NTPTimestampToTime(header.Xmt).UTC()
			if want := time.Date(2015, time.June, 30, 23, 50, 0, 0, time.UTC); !simulated.Truncate(time.Second).Equal(want) {
				t.Errorf("simulated transmit = %s, want %s", simulated, want)
			}
		})
	}
}

func TestRewriteReplacesUpstreamLeapBits(t *testing.T) {
	tests := []struct {
		name     string
		upstream byte
		polarity Polarity
		want     byte
	}{
		{"insert over insert", ntp.LEAPINS, Insert, ntp.LEAPINS},
		{"delete over insert", ntp.LEAPINS, Delete, ntp.LEAPDEL},
		{"insert over delete", ntp.LEAPDEL, Insert, ntp.LEAPINS},
		{"insert over unsynchronized", ntp.NOSYNC, Insert, ntp.LEAPINS},
		{"delete over unsynchronized", ntp.NOSYNC, Delete, ntp.LEAPDEL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewLeapState(ComputeWindow(juneScenarioNow, 600), tt.polarity)

			header := upstreamResponse(juneScenarioNow)
			header.Leap = tt.upstream
			packet := ntp.EncodeHeader(*header)
			if _, err := state.RewritePacket(packet); err != nil {
				t.Fatal(err)
			}

			// Version and mode must survive whatever the upstream leap bits were.
			if want := tt.want<<6 | 4<<3 | byte(ntp.SERVER); packet[0] != want {
				t.Errorf("first byte = %#x, want %#x", packet[0], want)
			}
		})
	}
}

func TestRewriteCrossingIsOneWay(t *testing.T) {
	for _, polarity := range []Polarity{Insert, Delete} {
		t.Run(polarity.String(), func(t *testing.T) {
			state := NewLeapState(ComputeWindow(juneScenarioNow, 600), polarity)

			// Real clock 23:59:30 is simulated midnight.
			crossing := juneScenarioNow.Add(10 * time.Minute)
			original := upstreamResponse(crossing)
			header := *original
			if phase := state.Rewrite(&header); phase != AfterWindow {
				t.Fatalf("crossing packet phase = %s, want after window", phase)
			}
			if state.Phase() != AfterWindow {
				t.Fatalf("state did not move to after window")
			}
			if header.Leap != ntp.NOWARNING {
				t.Errorf("leap bits forced after window: %d", header.Leap)
			}
			checkShifted(t, &header, original, state.Offset-int64(polarity))

			// An earlier timestamp afterwards must not reopen the window.
			original = upstreamResponse(juneScenarioNow)
			header = *original
			if phase := state.Rewrite(&header); phase != AfterWindow {
				t.Fatalf("phase went back to %s", phase)
			}
			checkShifted(t, &header, original, state.Offset-int64(polarity))
		})
	}
}

func TestRewriteJuneScenario(t *testing.T) {
	state := NewLeapState(ComputeWindow(juneScenarioNow, 600), Insert)
	crossing := juneScenarioNow.Add(10 * time.Minute)

	crossed := false
	for wall := juneScenarioNow; wall.Before(juneScenarioNow.Add(20 * time.Minute)); wall = wall.Add(7 * time.Second) {
		original := upstreamResponse(wall)
		header := *original
		phase := state.Rewrite(&header)

		if !wall.Before(crossing) {
			crossed = true
		}

		switch {
		case crossed && phase != AfterWindow:
			t.Fatalf("real %s: phase = %s after the boundary", wall.Format("15:04:05"), phase)
		case !crossed && phase != BeforeWindow:
			t.Fatalf("real %s: phase = %s before the boundary", wall.Format("15:04:05"), phase)
		case crossed:
			checkShifted(t, &header, original, 29)
		default:
			checkShifted(t, &header, original, 30)
			if header.Leap != ntp.LEAPINS {
				t.Fatalf("real %s: leap = %d", wall.Format("15:04:05"), header.Leap)
			}
		}
	}
	if !crossed {
		t.Fatal("scenario never reached the boundary")
	}
}

func TestRewriteWrappedDeltaKeepsFraction(t *testing.T) {
	state := NewLeapState(Window{Offset: -1, Boundary: 1 << 40}, Insert)
	header := &ntp.Header{NtpFieldsEncoded: ntp.NtpFieldsEncoded{
		Reftime: ntp.MakeTimestamp(0, 0xffffffff),
		Rec:     ntp.MakeTimestamp(0, 0x1),
		Xmt:     ntp.MakeTimestamp(5, 0x80000000),
	}}

	state.Rewrite(header)
	if header.Reftime != ntp.MakeTimestamp(0xffffffff, 0xffffffff) {
		t.Errorf("reference = %#x", header.Reftime)
	}
	if header.Rec != ntp.MakeTimestamp(0xffffffff, 0x1) {
		t.Errorf("receive = %#x", header.Rec)
	}
	if header.Xmt != ntp.MakeTimestamp(4, 0x80000000) {
		t.Errorf("transmit = %#x", header.Xmt)
	}
}

func TestRewritePacket(t *testing.T) {
	state := NewLeapState(ComputeWindow(juneScenarioNow, 600), Insert)

	original := upstreamResponse(juneScenarioNow)
	packet := append(ntp.EncodeHeader(*original), 0, 0, 0, 1, 0xca, 0xfe)
	trailer := append([]byte(nil), packet[ntp.HeaderLength:]...)

	phase, err := state.RewritePacket(packet)
	if err != nil {
		t.Fatal(err)
	}
	if phase != BeforeWindow {
		t.Errorf("phase = %s", phase)
	}
	if packet[0] != 0x64 {
		t.Errorf("first byte = %#x, want 0x64 (insert, v4, server)", packet[0])
	}
	if !bytes.Equal(packet[ntp.HeaderLength:], trailer) {
		t.Errorf("trailer changed: %x", packet[ntp.HeaderLength:])
	}

	rewritten, err := ntp.DecodeHeader(packet)
	if err != nil {
		t.Fatal(err)
	}
	checkShifted(t, rewritten, original, 30)
}

func TestRewritePacketShort(t *testing.T) {
	state := NewLeapState(ComputeWindow(juneScenarioNow, 600), Insert)

	packet := make([]byte, ntp.HeaderLength-1)
	packet[0] = 0x24
	if _, err := state.RewritePacket(packet); !errors.Is(err, ntp.ErrShortPacket) {
		t.Fatalf("err = %v, want ErrShortPacket", err)
	}
	if packet[0] != 0x24 {
		t.Errorf("short packet was modified")
	}
	if state.Phase() != BeforeWindow {
		t.Errorf("short packet moved the state")
	}
}
