// Package watch detects OS-level changes that may have altered an
// adapter's DNS configuration: adapters coming up or down, DHCP renewals,
// manual edits. A monitor is armed with a callback and fires it at most
// once per distinct change, coalescing bursts so the controller is not
// asked to re-evaluate more than necessary.
package watch

// Monitor watches for network configuration changes while armed.
//
// Arm starts delivering change notifications to onChange on a background
// goroutine. Disarm stops delivery and does not return until any in-flight
// callback has finished; after Disarm returns, onChange is never invoked
// again.
type Monitor interface {
	Arm(onChange func()) error
	Disarm()
}

// FingerprintFunc summarizes the current adapter set as a short hash.
// Monitors compare successive fingerprints to decide whether a change
// notification is warranted.
type FingerprintFunc func() (string, error)
