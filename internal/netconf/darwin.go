//go:build darwin

package netconf

import (
	"fmt"
	"net/netip"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// darwinConfigurator drives networksetup. Network services are the unit of
// DNS configuration on macOS, so the service name doubles as the AdapterID.
type darwinConfigurator struct{}

// NewSystemConfigurator returns the Configurator for the running platform.
func NewSystemConfigurator() (Configurator, error) {
	if _, err := exec.LookPath("networksetup"); err != nil {
		return nil, fmt.Errorf("networksetup not found: %w", err)
	}
	return &darwinConfigurator{}, nil
}

func (d *darwinConfigurator) ListActive() ([]Adapter, error) {
	output, err := exec.Command("networksetup", "-listallnetworkservices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list network services: %w", err)
	}

	var adapters []Adapter
	lines := strings.Split(string(output), "\n")

	// Skip the first line (header) and disabled services marked with "*".
	for i := 1; i < len(lines); i++ {
		service := strings.TrimSpace(lines[i])
		if service == "" || strings.HasPrefix(service, "*") {
			continue
		}

		dnsOutput, err := exec.Command("networksetup", "-getdnsservers", service).Output()
		if err != nil {
			logrus.WithError(err).WithField("service", service).Debug("Failed to read DNS servers")
			continue
		}

		servers, automatic := parseDNSServersOutput(string(dnsOutput))
		adapters = append(adapters, Adapter{
			ID:        AdapterID(service),
			Name:      service,
			Servers:   servers,
			Automatic: automatic,
		})
	}

	return adapters, nil
}

func (d *darwinConfigurator) Apply(id AdapterID, servers []netip.Addr) error {
	args := []string{"-setdnsservers", string(id)}
	if len(servers) == 0 {
		// "Empty" reverts the service to DHCP-assigned DNS.
		args = append(args, "Empty")
	} else {
		args = append(args, FormatServers(servers)...)
	}

	if output, err := exec.Command("networksetup", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("networksetup failed for %s: %s", id, strings.TrimSpace(string(output)))
	}
	return nil
}

// parseDNSServersOutput parses `networksetup -getdnsservers` output. The
// tool prints a sentence instead of an address list when the service has no
// static servers configured.
func parseDNSServersOutput(output string) (servers []netip.Addr, automatic bool) {
	trimmed := strings.TrimSpace(output)
	if strings.Contains(trimmed, "There aren't any DNS Servers") {
		return nil, true
	}

	for _, line := range strings.Split(trimmed, "\n") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(line)); err == nil {
			servers = append(servers, addr)
		}
	}
	return servers, len(servers) == 0
}
