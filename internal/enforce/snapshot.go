package enforce

import (
	"net/netip"

	"dnsanchor/internal/netconf"
)

// Snapshot records one adapter's pre-enforcement DNS configuration.
// Automatic means the adapter had no static servers (DHCP-assigned) and is
// restored by clearing the static list rather than writing one.
type Snapshot struct {
	Adapter   netconf.AdapterID
	Servers   []netip.Addr
	Automatic bool
}

// snapshotStore holds the original configuration of every adapter the
// session has modified and not yet restored. It is not safe for concurrent
// use; the session's lock guards it.
type snapshotStore struct {
	snaps map[netconf.AdapterID]Snapshot
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{snaps: make(map[netconf.AdapterID]Snapshot)}
}

// capture records the adapter's current configuration exactly once per
// session. A second capture for the same adapter returns the existing
// snapshot untouched, so the true original survives re-Sets.
func (s *snapshotStore) capture(adapter netconf.Adapter) Snapshot {
	if snap, ok := s.snaps[adapter.ID]; ok {
		return snap
	}

	snap := Snapshot{
		Adapter:   adapter.ID,
		Automatic: adapter.Automatic,
	}
	if !adapter.Automatic {
		snap.Servers = append([]netip.Addr(nil), adapter.Servers...)
	}
	s.snaps[adapter.ID] = snap
	return snap
}

// restore writes the snapshot's original configuration back through the
// configurator and discards the snapshot on success. On failure the
// snapshot is kept so a later RestoreAll can retry.
func (s *snapshotStore) restore(cfg netconf.Configurator, id netconf.AdapterID) error {
	snap, ok := s.snaps[id]
	if !ok {
		return nil
	}

	servers := snap.Servers
	if snap.Automatic {
		servers = nil
	}
	if err := cfg.Apply(id, servers); err != nil {
		return &ApplyError{Adapter: id, Err: err}
	}

	delete(s.snaps, id)
	return nil
}

// restoreAll restores every outstanding snapshot, best-effort. Failures on
// individual adapters are collected and do not stop the rest.
func (s *snapshotStore) restoreAll(cfg netconf.Configurator) []error {
	var errs []error
	for id := range s.snaps {
		if err := s.restore(cfg, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// clear discards all snapshots without restoring.
func (s *snapshotStore) clear() {
	s.snaps = make(map[netconf.AdapterID]Snapshot)
}

func (s *snapshotStore) has(id netconf.AdapterID) bool {
	_, ok := s.snaps[id]
	return ok
}

func (s *snapshotStore) len() int {
	return len(s.snaps)
}
