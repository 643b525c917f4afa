// Package netconf enumerates the machine's active network adapters and
// reads or writes their DNS resolver configuration. It is the only package
// that touches OS network state; everything above it works against the
// Configurator interface so the enforcement engine can be tested with an
// in-memory fake.
package netconf

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

// AdapterID identifies a network adapter for the lifetime of an enforcement
// session. It is the networksetup service name on macOS, the interface GUID
// on Windows and a fixed sentinel on Linux. Not stable across reboots.
type AdapterID string

// Adapter is one active network adapter and its current DNS configuration.
// An empty Servers slice with Automatic set means the adapter resolves via
// DHCP-assigned servers rather than a static list.
type Adapter struct {
	ID        AdapterID
	Name      string
	Servers   []netip.Addr
	Automatic bool
}

// Configurator lists active adapters and writes DNS server lists to them.
//
// Apply with an empty server list reverts the adapter to automatic
// (DHCP-assigned) DNS. Implementations must tolerate being asked to apply a
// list the adapter already carries.
type Configurator interface {
	ListActive() ([]Adapter, error)
	Apply(id AdapterID, servers []netip.Addr) error
}

// ParseServers parses textual IPv4/IPv6 literals into addresses. Order is
// preserved and duplicates are passed through untouched; resolution order
// is the caller's business, not ours.
func ParseServers(servers []string) ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, len(servers))
	for _, s := range servers {
		addr, err := netip.ParseAddr(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid DNS server address %q: %w", s, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// ServersEqual reports whether two server lists are identical, including
// order. Primary/secondary order matters for resolution, so ["8.8.8.8",
// "1.1.1.1"] and ["1.1.1.1", "8.8.8.8"] are different configurations.
func ServersEqual(a, b []netip.Addr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FormatServers renders addresses back to their textual form.
func FormatServers(addrs []netip.Addr) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

// Fingerprint reduces an adapter set to a short stable hash. The change
// monitor compares fingerprints between polls to decide whether anything
// about the adapter set or its DNS configuration moved.
func Fingerprint(adapters []Adapter) string {
	lines := make([]string, 0, len(adapters))
	for _, a := range adapters {
		lines = append(lines, fmt.Sprintf("%s|%v|%s", a.ID, a.Automatic, strings.Join(FormatServers(a.Servers), ",")))
	}
	sort.Strings(lines)

	hash := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return fmt.Sprintf("%x", hash[:8])
}

// parseServerString splits a comma or space separated server list, as found
// in the Windows registry NameServer value, into addresses. Entries that do
// not parse are dropped rather than failing the whole read; a corrupt value
// should not make an adapter invisible.
func parseServerString(list string) []netip.Addr {
	var servers []netip.Addr
	for _, part := range strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		if addr, err := netip.ParseAddr(part); err == nil {
			servers = append(servers, addr)
		}
	}
	return servers
}
