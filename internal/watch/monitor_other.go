//go:build !linux

package watch

import "time"

// NewSystemMonitor returns the Monitor for the running platform. Platforms
// without a netlink equivalent fall back to fingerprint polling; settle is
// unused because a poll cycle already coalesces bursts.
func NewSystemMonitor(fingerprint FingerprintFunc, interval, settle time.Duration) Monitor {
	return NewPoller(fingerprint, interval)
}
