package ntpproxy

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

var ErrPrivilege = errors.New("insufficient privilege")

const privilegedPorts = 1024

// CheckPrivilege fails when port is a privileged port and the process can
// neither bind it as root nor through CAP_NET_BIND_SERVICE.
func CheckPrivilege(port string) error {
	return checkPrivilege(port, unix.Geteuid(), canBindPrivileged())
}

func checkPrivilege(port string, euid int, canBind bool) error {
	number, err := strconv.Atoi(port)
	if err != nil {
		return &ConfigError{Field: "port", Reason: fmt.Sprintf("%q is not a UDP port", port)}
	}
	if number < privilegedPorts && euid != 0 && !canBind {
		return fmt.Errorf("%w: binding port %d requires root or CAP_NET_BIND_SERVICE, running as uid %d", ErrPrivilege, number, euid)
	}
	return nil
}
