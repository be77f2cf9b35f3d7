package ntpproxy

import (
	"fmt"
	"net"
	"strconv"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
)

type Polarity int

const (
	Insert Polarity = 1
	Delete Polarity = -1
)

const (
	DefaultLead     int64 = 600
	DefaultPolarity       = Insert
	DefaultHost           = "0.0.0.0"
	MaxLead         int64 = 86_400
)

func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "add", "insert", "ins":
		return Insert, nil
	case "del", "delete":
		return Delete, nil
	}
	return 0, &ConfigError{Field: "leap", Reason: fmt.Sprintf("%q is not add or del", s)}
}

// LeapBits is the leap indicator announcing this polarity.
func (p Polarity) LeapBits() byte {
	if p == Delete {
		return ntp.LEAPDEL
	}
	return ntp.LEAPINS
}

func (p Polarity) String() string {
	switch p {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	}
	return "Polarity(" + strconv.Itoa(int(p)) + ")"
}

// Policy is fixed at startup.
type Policy struct {
	Source     string
	SourcePort string
	Lead       int64
	Polarity   Polarity

	Host    string
	Port    string
	Verbose bool
}

func DefaultPolicy() Policy {
	return Policy{
		SourcePort: ntp.Port,
		Lead:       DefaultLead,
		Polarity:   DefaultPolarity,
		Host:       DefaultHost,
		Port:       ntp.Port,
	}
}

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (p Policy) Validate() error {
	if p.Source == "" {
		return &ConfigError{Field: "source", Reason: "an upstream server address is required"}
	}
	if ip := net.ParseIP(p.Source); ip == nil || ip.To4() == nil {
		return &ConfigError{Field: "source", Reason: fmt.Sprintf("%q is not an IPv4 address", p.Source)}
	}
	if p.Lead < 0 || p.Lead > MaxLead {
		return &ConfigError{Field: "delay", Reason: fmt.Sprintf("%d is outside 0..%d seconds", p.Lead, MaxLead)}
	}
	if p.Polarity != Insert && p.Polarity != Delete {
		return &ConfigError{Field: "leap", Reason: p.Polarity.String()}
	}
	for field, port := range map[string]string{"port": p.Port, "source port": p.SourcePort} {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("%q is not a UDP port", port)}
		}
	}
	return nil
}

func (p Policy) ListenAddress() string {
	return net.JoinHostPort(p.Host, p.Port)
}

func (p Policy) SourceAddress() string {
	return net.JoinHostPort(p.Source, p.SourcePort)
}
