package enforce

import (
	"errors"
	"fmt"

	"dnsanchor/internal/netconf"
)

// State-machine misuse and bad input are returned synchronously and cause
// no state change. Everything discovered in the background is delivered
// through the error sink instead.
var (
	// ErrInvalidArgument is returned by Set for an empty server list or a
	// malformed address literal, before any adapter is touched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyInitialized is returned by Initialize when the session was
	// initialized without an intervening Deinitialize.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrNotInitialized is returned by Set and Reset outside the
	// Initialized/Enforcing states.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrSessionActive is returned by Initialize when another session in
	// this process holds the enforcement guard.
	ErrSessionActive = errors.New("another enforcement session is active")
)

// EnumerationError wraps a failed adapter enumeration. The controller
// treats it as retryable: monitoring stays armed and the next change
// notification re-enumerates.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("adapter enumeration failed: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// ApplyError wraps a failed configuration write on one adapter. A single
// adapter failing never aborts enforcement on the rest.
type ApplyError struct {
	Adapter netconf.AdapterID
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to apply DNS configuration to %s: %v", e.Adapter, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// MonitorInitError wraps a failed change-monitor subscription. Set is still
// accepted, but drift will not be corrected until a later Set re-arms
// successfully.
type MonitorInitError struct {
	Err error
}

func (e *MonitorInitError) Error() string {
	return fmt.Sprintf("failed to arm change monitor: %v", e.Err)
}

func (e *MonitorInitError) Unwrap() error { return e.Err }

// Status codes returned to callers of the public surface. Stable across
// calls for the same failure class; 0 is success.
const (
	StatusOK                 = 0
	StatusInvalidArgument    = 1
	StatusNotInitialized     = 2
	StatusAlreadyInitialized = 3
	StatusSessionActive      = 4
	StatusEnumerationFailed  = 5
	StatusApplyFailed        = 6
	StatusMonitorFailed      = 7
	StatusInternal           = 9
)

// Code maps an error returned by a Session operation to its status code.
func Code(err error) int {
	var (
		enumErr    *EnumerationError
		applyErr   *ApplyError
		monitorErr *MonitorInitError
	)

	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, ErrNotInitialized):
		return StatusNotInitialized
	case errors.Is(err, ErrAlreadyInitialized):
		return StatusAlreadyInitialized
	case errors.Is(err, ErrSessionActive):
		return StatusSessionActive
	case errors.As(err, &enumErr):
		return StatusEnumerationFailed
	case errors.As(err, &applyErr):
		return StatusApplyFailed
	case errors.As(err, &monitorErr):
		return StatusMonitorFailed
	default:
		return StatusInternal
	}
}
