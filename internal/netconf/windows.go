//go:build windows

package netconf

import (
	"fmt"
	"net/netip"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/registry"
)

const (
	interfacesKeyPath = `SYSTEM\CurrentControlSet\Services\Tcpip\Parameters\Interfaces`

	nameServerValue     = "NameServer"
	dhcpNameServerValue = "DhcpNameServer"
	dhcpIPAddressValue  = "DhcpIPAddress"
	ipAddressValue      = "IPAddress"
)

var (
	dnsapi               = syscall.NewLazyDLL("dnsapi.dll")
	dnsFlushResolverFunc = dnsapi.NewProc("DnsFlushResolverCache")
)

// windowsConfigurator reads and writes per-interface DNS configuration in
// the TCP/IP registry hive. The interface GUID is the AdapterID.
type windowsConfigurator struct{}

// NewSystemConfigurator returns the Configurator for the running platform.
func NewSystemConfigurator() (Configurator, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, interfacesKeyPath, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", interfacesKeyPath, err)
	}
	key.Close()
	return &windowsConfigurator{}, nil
}

func (w *windowsConfigurator) ListActive() ([]Adapter, error) {
	root, err := registry.OpenKey(registry.LOCAL_MACHINE, interfacesKeyPath, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("open interfaces key: %w", err)
	}
	defer root.Close()

	guids, err := root.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	var adapters []Adapter
	for _, guid := range guids {
		adapter, ok, err := w.readInterface(guid)
		if err != nil {
			logrus.WithError(err).WithField("guid", guid).Debug("Failed to read interface key")
			continue
		}
		if ok {
			adapters = append(adapters, adapter)
		}
	}
	return adapters, nil
}

// readInterface returns the adapter for one interface GUID. An interface
// with no address assigned (statically or via DHCP) is considered down and
// excluded from enumeration.
func (w *windowsConfigurator) readInterface(guid string) (Adapter, bool, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, interfacesKeyPath+`\`+guid, registry.QUERY_VALUE)
	if err != nil {
		return Adapter{}, false, err
	}
	defer key.Close()

	if !interfaceHasAddress(key) {
		return Adapter{}, false, nil
	}

	adapter := Adapter{ID: AdapterID(guid), Name: guid}

	if nameServer, _, err := key.GetStringValue(nameServerValue); err == nil && strings.TrimSpace(nameServer) != "" {
		adapter.Servers = parseServerString(nameServer)
		return adapter, true, nil
	}

	// No static servers configured; the interface resolves via DHCP.
	adapter.Automatic = true
	if dhcpServers, _, err := key.GetStringValue(dhcpNameServerValue); err == nil {
		adapter.Servers = parseServerString(dhcpServers)
	}
	return adapter, true, nil
}

func interfaceHasAddress(key registry.Key) bool {
	if addr, _, err := key.GetStringValue(dhcpIPAddressValue); err == nil && addr != "" && addr != "0.0.0.0" {
		return true
	}
	if addrs, _, err := key.GetStringsValue(ipAddressValue); err == nil {
		for _, addr := range addrs {
			if addr != "" && addr != "0.0.0.0" {
				return true
			}
		}
	}
	return false
}

func (w *windowsConfigurator) Apply(id AdapterID, servers []netip.Addr) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, interfacesKeyPath+`\`+string(id), registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open interface key %s: %w", id, err)
	}
	defer key.Close()

	// An empty NameServer value reverts the interface to DHCP-assigned DNS.
	if err := key.SetStringValue(nameServerValue, strings.Join(FormatServers(servers), ",")); err != nil {
		return fmt.Errorf("set NameServer for %s: %w", id, err)
	}

	flushResolverCache()
	return nil
}

func flushResolverCache() {
	if err := dnsFlushResolverFunc.Find(); err != nil {
		return
	}
	ret, _, _ := dnsFlushResolverFunc.Call()
	if ret == 0 {
		logrus.Debug("DnsFlushResolverCache reported failure")
	}
}
