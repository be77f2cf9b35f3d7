//go:build linux

package ntpproxy

import (
	"golang.org/x/sys/unix"
)

func canBindPrivileged() bool {
	header := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&header, &data[0]); err != nil {
		debug("Capget failed:", err)
		return false
	}
	return hasCapability(data, unix.CAP_NET_BIND_SERVICE)
}

func hasCapability(data [2]unix.CapUserData, capability int) bool {
	return data[capability/32].Effective&(1<<(uint(capability)%32)) != 0
}
