//go:build !linux

package ntpproxy

// Capabilities are Linux only; elsewhere root is required.
func canBindPrivileged() bool {
	return false
}
