//go:build linux

package netconf

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseResolvConf(t *testing.T) {
	content := `# Generated by NetworkManager
search corp.example.com
nameserver 192.168.1.1
nameserver 2001:4860:4860::8888
options edns0 trust-ad
nameserver8.8.8.8
nameserver not-an-ip
`
	got := FormatServers(parseResolvConf(content))
	want := []string{"192.168.1.1", "2001:4860:4860::8888"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("parseResolvConf = %v, want %v", got, want)
	}
}

func TestRewriteResolvConf(t *testing.T) {
	servers := []netip.Addr{mustAddr(t, "8.8.8.8"), mustAddr(t, "1.1.1.1")}

	t.Run("ReplacesInPlace", func(t *testing.T) {
		in := "# comment\nsearch corp.example.com\nnameserver 192.168.1.1\noptions edns0\n"
		want := "# comment\nsearch corp.example.com\nnameserver 8.8.8.8\nnameserver 1.1.1.1\noptions edns0\n"
		if got := rewriteResolvConf(in, servers); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("CollapsesMultipleDirectives", func(t *testing.T) {
		in := "nameserver 192.168.1.1\nsearch corp\nnameserver 192.168.1.2\n"
		got := rewriteResolvConf(in, servers)
		if strings.Count(got, "nameserver") != 2 {
			t.Errorf("expected exactly 2 nameserver lines:\n%s", got)
		}
		if !strings.Contains(got, "search corp") {
			t.Errorf("search line lost:\n%s", got)
		}
	})

	t.Run("AppendsWhenNoneExist", func(t *testing.T) {
		in := "search corp\n"
		want := "search corp\nnameserver 8.8.8.8\nnameserver 1.1.1.1\n"
		if got := rewriteResolvConf(in, servers); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("ClearsDirectives", func(t *testing.T) {
		in := "search corp\nnameserver 8.8.8.8\n"
		want := "search corp\n"
		if got := rewriteResolvConf(in, nil); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})
}

func TestLinuxConfiguratorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	original := "# managed by hand\nsearch corp.example.com\nnameserver 192.168.1.1\n"
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := &linuxConfigurator{path: path}

	adapters, err := cfg.ListActive()
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(adapters) != 1 || adapters[0].ID != SystemResolverID {
		t.Fatalf("adapters = %+v, want single system resolver", adapters)
	}
	if adapters[0].Automatic {
		t.Error("adapter with nameserver directives reported automatic")
	}

	enforced := []netip.Addr{mustAddr(t, "8.8.8.8")}
	if err := cfg.Apply(SystemResolverID, enforced); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	adapters, err = cfg.ListActive()
	if err != nil {
		t.Fatalf("ListActive after Apply: %v", err)
	}
	if !ServersEqual(adapters[0].Servers, enforced) {
		t.Errorf("after Apply: %v, want %v", adapters[0].Servers, enforced)
	}

	// Restore the original list and check non-nameserver lines survived.
	if err := cfg.Apply(SystemResolverID, []netip.Addr{mustAddr(t, "192.168.1.1")}); err != nil {
		t.Fatalf("restore Apply: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != original {
		t.Errorf("restored file:\n%s\nwant:\n%s", data, original)
	}

	if err := cfg.Apply("ghost", enforced); err == nil {
		t.Error("Apply to unknown adapter succeeded")
	}
}
