package enforce

import (
	"fmt"
	"net/netip"
	"testing"

	"dnsanchor/internal/netconf"
)

func TestSnapshotCaptureOnce(t *testing.T) {
	store := newSnapshotStore()
	original := []netip.Addr{addr(t, "9.9.9.9")}

	first := store.capture(netconf.Adapter{ID: "en0", Servers: original})
	if !netconf.ServersEqual(first.Servers, original) {
		t.Fatalf("first capture = %v, want %v", first.Servers, original)
	}

	// A later capture sees the enforced servers; the stored original must
	// not move.
	second := store.capture(netconf.Adapter{ID: "en0", Servers: []netip.Addr{addr(t, "8.8.8.8")}})
	if !netconf.ServersEqual(second.Servers, original) {
		t.Errorf("second capture = %v, want the original %v", second.Servers, original)
	}
	if store.len() != 1 {
		t.Errorf("store holds %d snapshots, want 1", store.len())
	}
}

func TestSnapshotAutomaticAdapter(t *testing.T) {
	store := newSnapshotStore()
	snap := store.capture(netconf.Adapter{
		ID:        "en0",
		Servers:   []netip.Addr{addr(t, "192.168.1.1")},
		Automatic: true,
	})

	if !snap.Automatic {
		t.Error("snapshot lost the automatic flag")
	}
	if len(snap.Servers) != 0 {
		t.Errorf("automatic snapshot stored DHCP-observed servers %v", snap.Servers)
	}

	// Restore must clear the static list, not write the observed servers.
	cfg := newFakeConfigurator(netconf.Adapter{ID: "en0", Servers: []netip.Addr{addr(t, "8.8.8.8")}})
	if err := store.restore(cfg, "en0"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := cfg.get("en0"); !got.Automatic {
		t.Errorf("restore left adapter static: %+v", got)
	}
}

func TestSnapshotRestoreKeepsFailedEntries(t *testing.T) {
	store := newSnapshotStore()
	store.capture(netconf.Adapter{ID: "en0", Servers: []netip.Addr{addr(t, "9.9.9.9")}})
	store.capture(netconf.Adapter{ID: "en1", Servers: []netip.Addr{addr(t, "9.9.9.10")}})

	cfg := newFakeConfigurator(
		netconf.Adapter{ID: "en0"},
		netconf.Adapter{ID: "en1"},
	)
	cfg.applyErr["en0"] = fmt.Errorf("device busy")

	errs := store.restoreAll(cfg)
	if len(errs) != 1 {
		t.Fatalf("restoreAll returned %d errors, want 1", len(errs))
	}
	if !store.has("en0") {
		t.Error("failed snapshot was discarded, retry impossible")
	}
	if store.has("en1") {
		t.Error("successful restore left its snapshot behind")
	}

	// Clearing the fault lets the retry drain the store.
	delete(cfg.applyErr, "en0")
	if errs := store.restoreAll(cfg); len(errs) != 0 {
		t.Fatalf("retry restoreAll returned %v", errs)
	}
	if store.len() != 0 {
		t.Errorf("store holds %d snapshots after retry, want 0", store.len())
	}
}

func TestSnapshotRestoreUnknownAdapterIsNoop(t *testing.T) {
	store := newSnapshotStore()
	cfg := newFakeConfigurator(netconf.Adapter{ID: "en0"})
	if err := store.restore(cfg, "ghost"); err != nil {
		t.Errorf("restore of unknown adapter: %v", err)
	}
	if cfg.applyCount() != 0 {
		t.Error("restore of unknown adapter wrote to the configurator")
	}
}
