package ntpproxy

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/beevik/ntp"
)

var ErrSourceUnusable = errors.New("upstream source is not usable")

const ProbeTimeout = 5 * time.Second

// Probe queries the upstream source once, as a normal client would, to
// check it answers and is synchronized before the relay starts.
func Probe(policy Policy, timeout time.Duration) (*ntp.Response, error) {
	port, err := strconv.Atoi(policy.SourcePort)
	if err != nil {
		return nil, &ConfigError{Field: "source port", Reason: err.Error()}
	}

	response, err := ntp.QueryWithOptions(policy.Source, ntp.QueryOptions{
		Timeout: timeout,
		Version: 4,
		Port:    port,
	})
	if err != nil {
		return nil, &TransportError{Op: "probe " + policy.SourceAddress(), Err: err}
	}

	if err := response.Validate(); err != nil {
		return response, fmt.Errorf("%w: %v", ErrSourceUnusable, err)
	}

	switch response.Leap {
	case ntp.LeapAddSecond, ntp.LeapDelSecond:
		log.Printf("Upstream %s already announces a leap second (leap=%d)", policy.Source, response.Leap)
	}
	info("Probe:", policy.Source, "stratum", response.Stratum, "offset", response.ClockOffset, "rtt", response.RTT)

	return response, nil
}
