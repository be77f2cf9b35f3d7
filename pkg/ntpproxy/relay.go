package ntpproxy

import (
	"errors"
	"log"
	"net"
	"sync"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
	"golang.org/x/net/ipv4"
)

const MTU = 1300

type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Relay forwards one client query at a time to the upstream source and
// sends the rewritten response back.
type Relay struct {
	policy Policy
	state  *LeapState

	upstream   net.Conn
	conn       net.PacketConn
	downstream *ipv4.PacketConn

	lock      sync.Mutex
	stats     relayStats
	startedAt ntp.TimestampEncoded
}

type relayStats struct {
	queries  uint64
	rejected uint64
	relayed  uint64
	dropped  uint64
	lastPeer string
	lastXmt  ntp.TimestampEncoded
}

// Listen connects to the upstream source and binds the downstream socket.
func Listen(policy Policy, state *LeapState) (*Relay, error) {
	upstream, err := net.Dial("udp4", policy.SourceAddress())
	if err != nil {
		return nil, &TransportError{Op: "connect " + policy.SourceAddress(), Err: err}
	}

	conn, err := net.ListenPacket("udp4", policy.ListenAddress())
	if err != nil {
		upstream.Close()
		return nil, &TransportError{Op: "bind " + policy.ListenAddress(), Err: err}
	}

	downstream := ipv4.NewPacketConn(conn)
	if err := downstream.SetControlMessage(ipv4.FlagDst, true); err != nil {
		debug("No destination control messages, replies leave from the default address:", err)
	}

	return &Relay{
		policy:     policy,
		state:      state,
		upstream:   upstream,
		conn:       conn,
		downstream: downstream,
		startedAt:  GetSystemTime(),
	}, nil
}

func (r *Relay) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Serve runs the relay cycle until an I/O error, which it returns, or until
// Close, after which it returns nil.
func (r *Relay) Serve() error {
	query := make([]byte, MTU)
	response := make([]byte, MTU)

	for {
		n, cm, peer, err := r.downstream.ReadFrom(query)
		if err != nil {
			return r.transportError("receive from client", err)
		}
		log.Printf("Received %d B from client %s", n, peer)
		r.record(func(s *relayStats) {
			s.queries++
			s.lastPeer = peer.String()
		})
		if r.policy.Verbose {
			log.Print(FormatHeader(query[:n]))
		}

		if err := Accept(query[:n]); err != nil {
			log.Printf("Ignoring request from %s: %v", peer, err)
			r.record(func(s *relayStats) { s.rejected++ })
			continue
		}

		if _, err := r.upstream.Write(query[:n]); err != nil {
			return r.transportError("forward to server", err)
		}
		log.Print("Client's query forwarded to server")

		n, err = r.upstream.Read(response)
		if err != nil {
			return r.transportError("receive from server", err)
		}
		log.Printf("Received %d B from server %s", n, r.policy.Source)
		if r.policy.Verbose {
			log.Print(FormatHeader(response[:n]))
		}

		phase, err := r.state.RewritePacket(response[:n])
		if err != nil {
			log.Printf("Dropping response from %s: %v", r.policy.Source, err)
			r.record(func(s *relayStats) { s.dropped++ })
			continue
		}

		if _, err := r.downstream.WriteTo(response[:n], replyControlMessage(cm), peer); err != nil {
			return r.transportError("send to client", err)
		}
		r.record(func(s *relayStats) {
			s.relayed++
			s.lastXmt = ntp.TransmitOf(response[:n])
		})
		log.Printf("Modified response (%d B, %s) sent to client %s", n, phase, peer)
		if r.policy.Verbose {
			log.Print(FormatHeader(response[:n]))
		}
	}
}

// Replies leave from the address the query arrived on.
func replyControlMessage(cm *ipv4.ControlMessage) *ipv4.ControlMessage {
	if cm == nil || cm.Dst == nil || cm.Dst.IsMulticast() || cm.Dst.Equal(net.IPv4bcast) {
		return nil
	}
	return &ipv4.ControlMessage{Src: cm.Dst}
}

func (r *Relay) transportError(op string, err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

func (r *Relay) record(update func(*relayStats)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	update(&r.stats)
}

func (r *Relay) Status() ntp.Status {
	r.lock.Lock()
	stats := r.stats
	r.lock.Unlock()

	return ntp.Status{
		Source:    r.policy.Source,
		Polarity:  int(r.state.Polarity),
		Lead:      r.state.Lead,
		Offset:    r.state.Offset,
		Boundary:  r.state.Boundary,
		Crossed:   r.state.Phase() == AfterWindow,
		Queries:   stats.queries,
		Rejected:  stats.rejected,
		Relayed:   stats.relayed,
		Dropped:   stats.dropped,
		LastPeer:  stats.lastPeer,
		LastXmt:   stats.lastXmt,
		StartedAt: r.startedAt,
	}
}

func (r *Relay) Close() error {
	err := r.downstream.Close()
	if upstreamErr := r.upstream.Close(); err == nil {
		err = upstreamErr
	}
	return err
}
