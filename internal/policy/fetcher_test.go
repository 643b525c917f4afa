package policy

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		doc, err := Parse([]byte(`
version: "2026-08-01"
updated: 2026-08-01T00:00:00Z
servers:
  - 8.8.8.8
  - 2001:4860:4860::8888
`))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if doc.Version != "2026-08-01" {
			t.Errorf("version = %q", doc.Version)
		}
		if len(doc.Servers) != 2 {
			t.Errorf("servers = %v", doc.Servers)
		}
	})

	t.Run("NoServers", func(t *testing.T) {
		if _, err := Parse([]byte(`version: "1"`)); err == nil {
			t.Error("policy without servers accepted")
		}
	})

	t.Run("RejectedWholeOnOneBadLiteral", func(t *testing.T) {
		_, err := Parse([]byte("servers: [8.8.8.8, bogus]"))
		if err == nil {
			t.Fatal("half-valid policy accepted")
		}
		if !strings.Contains(err.Error(), "bogus") {
			t.Errorf("error does not name the bad literal: %v", err)
		}
	})

	t.Run("NotYAML", func(t *testing.T) {
		if _, err := Parse([]byte("{servers: [")); err == nil {
			t.Error("malformed YAML accepted")
		}
	})
}

func TestServersChanged(t *testing.T) {
	cases := []struct {
		name             string
		current, updated []string
		want             bool
	}{
		{"Identical", []string{"8.8.8.8", "1.1.1.1"}, []string{"8.8.8.8", "1.1.1.1"}, false},
		{"Reordered", []string{"8.8.8.8", "1.1.1.1"}, []string{"1.1.1.1", "8.8.8.8"}, true},
		{"Grown", []string{"8.8.8.8"}, []string{"8.8.8.8", "1.1.1.1"}, true},
		{"Shrunk", []string{"8.8.8.8", "1.1.1.1"}, []string{"8.8.8.8"}, true},
		{"BothEmpty", nil, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ServersChanged(tc.current, tc.updated); got != tc.want {
				t.Errorf("ServersChanged(%v, %v) = %v, want %v", tc.current, tc.updated, got, tc.want)
			}
		})
	}
}
