//go:build linux

package netconf

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
)

// Resolver configuration on Linux is a property of the host, not of a
// single interface, so the whole of /etc/resolv.conf is modeled as one
// adapter. Writes rewrite only the nameserver directives and keep every
// other line (search, options, comments) untouched.
const (
	resolvConfPath = "/etc/resolv.conf"

	// SystemResolverID is the AdapterID of the single Linux pseudo-adapter.
	SystemResolverID AdapterID = "system-resolver"
)

type linuxConfigurator struct {
	path string
}

// NewSystemConfigurator returns the Configurator for the running platform.
func NewSystemConfigurator() (Configurator, error) {
	if _, err := os.Stat(resolvConfPath); err != nil {
		return nil, fmt.Errorf("stat %s: %w", resolvConfPath, err)
	}
	return &linuxConfigurator{path: resolvConfPath}, nil
}

func (l *linuxConfigurator) ListActive() ([]Adapter, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	servers := parseResolvConf(string(data))
	return []Adapter{{
		ID:        SystemResolverID,
		Name:      l.path,
		Servers:   servers,
		Automatic: len(servers) == 0,
	}}, nil
}

func (l *linuxConfigurator) Apply(id AdapterID, servers []netip.Addr) error {
	if id != SystemResolverID {
		return fmt.Errorf("unknown adapter %q", id)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", l.path, err)
	}

	rewritten := rewriteResolvConf(string(data), servers)
	if err := os.WriteFile(l.path, []byte(rewritten), 0644); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return nil
}

func parseResolvConf(content string) []netip.Addr {
	var servers []netip.Addr
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		if addr, err := netip.ParseAddr(fields[1]); err == nil {
			servers = append(servers, addr)
		}
	}
	return servers
}

// rewriteResolvConf replaces the nameserver directives in content with the
// given servers, preserving all other lines in their original order. The
// new directives land where the first old one was, or at the end of the
// file if there were none.
func rewriteResolvConf(content string, servers []netip.Addr) string {
	var kept []string
	insertAt := -1

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) >= 1 && fields[0] == "nameserver" {
			if insertAt == -1 {
				insertAt = len(kept)
			}
			continue
		}
		kept = append(kept, line)
	}
	if insertAt == -1 {
		insertAt = len(kept)
	}

	directives := make([]string, 0, len(servers))
	for _, s := range servers {
		directives = append(directives, "nameserver "+s.String())
	}

	var out []string
	out = append(out, kept[:insertAt]...)
	out = append(out, directives...)
	out = append(out, kept[insertAt:]...)

	result := strings.Join(out, "\n")
	if result != "" {
		result += "\n"
	}
	return result
}
