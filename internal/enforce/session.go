// Package enforce owns the DNS enforcement state machine. A Session
// applies a target server list to every active adapter, snapshots each
// adapter's original configuration before first touching it, re-applies
// the target whenever the change monitor reports drift, and restores the
// originals on Reset or Deinitialize.
package enforce

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"dnsanchor/internal/audit"
	"dnsanchor/internal/netconf"
	"dnsanchor/internal/watch"

	"github.com/sirupsen/logrus"
)

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateEnforcing
	StateDeinitialized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateEnforcing:
		return "enforcing"
	case StateDeinitialized:
		return "deinitialized"
	default:
		return "unknown"
	}
}

// ErrorEvent describes a condition discovered during enforcement that no
// synchronous call can return: a failed re-apply, a failed enumeration, a
// monitor that would not arm. Adapter is empty when the condition is not
// tied to one adapter.
type ErrorEvent struct {
	Message string
	Adapter netconf.AdapterID
}

// ErrorSink receives error events. It is invoked on the goroutine that
// discovered the condition (a public operation or the monitor's callback
// goroutine) while the session lock is held, so it must return promptly
// and must not call back into the Session.
type ErrorSink func(ErrorEvent)

// Only one session may enforce at a time in a process; the guard is held
// from a successful Initialize until Deinitialize.
var sessionActive atomic.Bool

// Session is the enforcement controller. All public operations serialize
// against each other and against monitor-triggered re-evaluations.
type Session struct {
	cfg netconf.Configurator
	mon watch.Monitor

	// opMu serializes the public operations. mu guards the fields below
	// and is the exclusion domain shared with the monitor callback; it is
	// never held while waiting on Disarm, which is what makes a
	// synchronous Disarm deadlock-free.
	opMu sync.Mutex
	mu   sync.Mutex

	state  State
	sink   ErrorSink
	target []netip.Addr
	snaps  *snapshotStore
	armed  bool
}

// NewSession creates a session over the given configurator and monitor.
// The session starts uninitialized and owns no OS state until Set.
func NewSession(cfg netconf.Configurator, mon watch.Monitor) *Session {
	return &Session{
		cfg:   cfg,
		mon:   mon,
		snaps: newSnapshotStore(),
	}
}

// Initialize installs the error sink and makes the session ready for Set.
// A second Initialize without an intervening Deinitialize fails, as does
// initializing while another session in the process holds the guard.
func (s *Session) Initialize(sink ErrorSink) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateInitialized || s.state == StateEnforcing {
		return ErrAlreadyInitialized
	}
	if !sessionActive.CompareAndSwap(false, true) {
		return ErrSessionActive
	}

	s.state = StateInitialized
	s.sink = sink
	s.snaps = newSnapshotStore()

	audit.Log(audit.EventSessionInit, "info", "Enforcement session initialized", nil)
	return nil
}

// Set installs the target server list: captures a snapshot for every
// enumerated adapter not yet snapshotted, applies the target to all of
// them, and arms the change monitor. Calling Set again while enforcing
// re-arms with the new list; existing snapshots are preserved so the true
// original configuration survives.
//
// Per-adapter apply failures are reported through the sink and do not fail
// the call. A failed enumeration is returned (and reported) but leaves the
// session enforcing: the monitor retries on the next change. A monitor
// that will not arm is reported through the sink only; until a later Set
// re-arms successfully, drift will not be corrected.
func (s *Session) Set(servers []string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if len(servers) == 0 {
		return fmt.Errorf("%w: server list is empty", ErrInvalidArgument)
	}
	target, err := netconf.ParseServers(servers)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInitialized && s.state != StateEnforcing {
		return ErrNotInitialized
	}

	s.target = target

	var setErr error
	adapters, err := s.cfg.ListActive()
	if err != nil {
		enumErr := &EnumerationError{Err: err}
		s.emit(ErrorEvent{Message: enumErr.Error()})
		setErr = enumErr
	} else {
		s.applyTargetLocked(adapters)
	}

	if !s.armed {
		if err := s.mon.Arm(s.reevaluate); err != nil {
			monErr := &MonitorInitError{Err: err}
			s.emit(ErrorEvent{Message: monErr.Error()})
			audit.Log(audit.EventMonitorFailure, "warning", monErr.Error(), nil)
		} else {
			s.armed = true
			audit.Log(audit.EventMonitorArmed, "info", "Change monitor armed", nil)
		}
	}

	s.state = StateEnforcing
	audit.Log(audit.EventEnforceSet, "info", "DNS enforcement target set", map[string]interface{}{
		"servers": netconf.FormatServers(target),
	})
	logrus.WithField("servers", netconf.FormatServers(target)).Info("DNS enforcement active")

	return setErr
}

// Reset disarms the monitor, restores every snapshotted adapter to its
// recorded configuration and returns the session to the initialized
// state. Calling Reset when not enforcing is a successful no-op. Restore
// failures on individual adapters are reported through the sink; the
// affected snapshots are kept so Deinitialize can retry them.
func (s *Session) Reset() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	switch s.state {
	case StateInitialized:
		s.mu.Unlock()
		return nil
	case StateEnforcing:
	default:
		s.mu.Unlock()
		return ErrNotInitialized
	}

	// Leave the enforcing state before disarming; an in-flight
	// re-evaluation checks the state under the lock before every adapter
	// write, so a late re-apply is impossible.
	s.state = StateInitialized
	armed := s.armed
	s.armed = false
	s.mu.Unlock()

	if armed {
		s.mon.Disarm()
		audit.Log(audit.EventMonitorDisarmed, "info", "Change monitor disarmed", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreAllLocked()
	s.target = nil

	audit.Log(audit.EventEnforceReset, "info", "DNS enforcement reset", nil)
	logrus.Info("DNS enforcement reset, original configuration restored")
	return nil
}

// Deinitialize tears the session down from any state: disarms the monitor
// if armed, restores any outstanding snapshots, releases the sink and the
// process-wide session guard. It is idempotent and never fails.
func (s *Session) Deinitialize() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.state == StateUninitialized || s.state == StateDeinitialized {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDeinitialized
	armed := s.armed
	s.armed = false
	s.mu.Unlock()

	if armed {
		s.mon.Disarm()
		audit.Log(audit.EventMonitorDisarmed, "info", "Change monitor disarmed", nil)
	}

	s.mu.Lock()
	s.restoreAllLocked()
	s.snaps.clear()
	s.target = nil
	s.sink = nil
	s.mu.Unlock()

	sessionActive.Store(false)
	audit.Log(audit.EventSessionDeinit, "info", "Enforcement session deinitialized", nil)
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns the currently enforced server list, nil when idle.
func (s *Session) Target() []netip.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]netip.Addr(nil), s.target...)
}

// PendingSnapshots returns how many adapters still have an unrestored
// snapshot.
func (s *Session) PendingSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps.len()
}

// reevaluate is the monitor callback. It runs on the monitor's goroutine,
// under the session lock, and re-applies the target to any adapter found
// deviating, including adapters that appeared after Set. Adapters that
// disappeared keep their snapshot; if they come back within the session
// they are treated as drift and re-enforced.
func (s *Session) reevaluate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateEnforcing {
		return
	}

	adapters, err := s.cfg.ListActive()
	if err != nil {
		enumErr := &EnumerationError{Err: err}
		s.emit(ErrorEvent{Message: enumErr.Error()})
		return
	}

	for _, adapter := range adapters {
		if s.state != StateEnforcing {
			return
		}
		if !adapter.Automatic && netconf.ServersEqual(adapter.Servers, s.target) {
			continue
		}

		s.snaps.capture(adapter)
		if err := s.cfg.Apply(adapter.ID, s.target); err != nil {
			applyErr := &ApplyError{Adapter: adapter.ID, Err: err}
			s.emit(ErrorEvent{Message: applyErr.Error(), Adapter: adapter.ID})
			audit.Log(audit.EventApplyFailure, "warning", applyErr.Error(), map[string]interface{}{
				"adapter": string(adapter.ID),
			})
			continue
		}

		logrus.WithFields(logrus.Fields{
			"adapter": adapter.ID,
			"servers": netconf.FormatServers(s.target),
		}).Info("Corrected DNS drift")
		audit.Log(audit.EventDriftCorrected, "info", "Re-applied enforced DNS servers", map[string]interface{}{
			"adapter": string(adapter.ID),
		})
	}
}

// applyTargetLocked captures and applies the target to every enumerated
// adapter. Applying a list an adapter already carries skips the OS write.
func (s *Session) applyTargetLocked(adapters []netconf.Adapter) {
	for _, adapter := range adapters {
		s.snaps.capture(adapter)

		if !adapter.Automatic && netconf.ServersEqual(adapter.Servers, s.target) {
			continue
		}
		if err := s.cfg.Apply(adapter.ID, s.target); err != nil {
			applyErr := &ApplyError{Adapter: adapter.ID, Err: err}
			s.emit(ErrorEvent{Message: applyErr.Error(), Adapter: adapter.ID})
			audit.Log(audit.EventApplyFailure, "warning", applyErr.Error(), map[string]interface{}{
				"adapter": string(adapter.ID),
			})
			continue
		}

		logrus.WithFields(logrus.Fields{
			"adapter": adapter.ID,
			"servers": netconf.FormatServers(s.target),
		}).Info("Applied enforced DNS servers")
	}
}

// restoreAllLocked restores every outstanding snapshot best-effort,
// reporting failures through the sink.
func (s *Session) restoreAllLocked() {
	restored := s.snaps.len()
	for _, err := range s.snaps.restoreAll(s.cfg) {
		restored--
		var applyErr *ApplyError
		ev := ErrorEvent{Message: err.Error()}
		if errors.As(err, &applyErr) {
			ev.Adapter = applyErr.Adapter
		}
		s.emit(ev)
	}
	if restored > 0 {
		audit.Log(audit.EventSnapshotRestored, "info", "Restored original DNS configuration", map[string]interface{}{
			"adapters": restored,
		})
	}
}

// emit delivers an event to the sink, if one is installed. Callers hold
// s.mu.
func (s *Session) emit(ev ErrorEvent) {
	logrus.WithField("adapter", ev.Adapter).Warn(ev.Message)
	if s.sink != nil {
		s.sink(ev)
	}
}
