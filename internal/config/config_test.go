package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	// An explicit path to an empty file skips the default search locations.
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Agent.LogLevel != "info" {
		t.Errorf("default log level = %q, want info", cfg.Agent.LogLevel)
	}
	if cfg.Enforce.PollInterval != 5*time.Second {
		t.Errorf("default poll interval = %s, want 5s", cfg.Enforce.PollInterval)
	}
	if cfg.Enforce.SettleDelay != 500*time.Millisecond {
		t.Errorf("default settle delay = %s, want 500ms", cfg.Enforce.SettleDelay)
	}
	if cfg.Policy.UpdateInterval != 5*time.Minute {
		t.Errorf("default update interval = %s, want 5m", cfg.Policy.UpdateInterval)
	}
	if !cfg.Probe.Enabled || cfg.Probe.Timeout != 2*time.Second {
		t.Errorf("default probe config = %+v", cfg.Probe)
	}
	if !cfg.Audit.Enabled {
		t.Error("audit not enabled by default")
	}
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
agent:
  logLevel: debug
enforce:
  servers:
    - 8.8.8.8
    - 1.1.1.1
  pollInterval: 10s
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Agent.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Agent.LogLevel)
	}
	if len(cfg.Enforce.Servers) != 2 || cfg.Enforce.Servers[0] != "8.8.8.8" {
		t.Errorf("servers = %v", cfg.Enforce.Servers)
	}
	if cfg.Enforce.PollInterval != 10*time.Second {
		t.Errorf("poll interval = %s, want 10s", cfg.Enforce.PollInterval)
	}
	// Settings absent from the file keep their defaults.
	if cfg.Enforce.SettleDelay != 500*time.Millisecond {
		t.Errorf("settle delay = %s, want default 500ms", cfg.Enforce.SettleDelay)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing explicit config file accepted")
	}
	if _, err := LoadConfig(writeConfig(t, "enforce: [not, a, mapping]")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, "enforce:\n  servers: [8.8.8.8]\n"))
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		return cfg
	}

	t.Run("Valid", func(t *testing.T) {
		if err := ValidateConfig(valid()); err != nil {
			t.Errorf("ValidateConfig: %v", err)
		}
	})

	t.Run("NoServersNoPolicy", func(t *testing.T) {
		cfg := valid()
		cfg.Enforce.Servers = nil
		if err := ValidateConfig(cfg); err == nil {
			t.Error("config without servers or policy accepted")
		}
	})

	t.Run("BadServerLiteral", func(t *testing.T) {
		cfg := valid()
		cfg.Enforce.Servers = []string{"8.8.8.8", "nope"}
		err := ValidateConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), "enforce.servers") {
			t.Errorf("bad literal: %v", err)
		}
	})

	t.Run("PollIntervalTooShort", func(t *testing.T) {
		cfg := valid()
		cfg.Enforce.PollInterval = 100 * time.Millisecond
		if err := ValidateConfig(cfg); err == nil {
			t.Error("sub-second poll interval accepted")
		}
	})

	t.Run("PolicyNeedsRegionAndPath", func(t *testing.T) {
		cfg := valid()
		cfg.Policy.Bucket = "acme-dns-policies"
		if err := ValidateConfig(cfg); err == nil {
			t.Error("policy bucket without region accepted")
		}
		cfg.Policy.Region = "us-east-1"
		if err := ValidateConfig(cfg); err == nil {
			t.Error("policy bucket without path accepted")
		}
		cfg.Policy.PolicyPath = "policies/default.yaml"
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("complete policy config rejected: %v", err)
		}
	})

	t.Run("PolicyOnlyIsEnough", func(t *testing.T) {
		cfg := valid()
		cfg.Enforce.Servers = nil
		cfg.Policy.Bucket = "acme-dns-policies"
		cfg.Policy.Region = "us-east-1"
		cfg.Policy.PolicyPath = "policies/default.yaml"
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("policy-only config rejected: %v", err)
		}
	})
}

func TestSanitizeConfigForLogging(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
enforce:
  servers: [8.8.8.8]
policy:
  bucket: acme-dns-policies
  accessKeyId: AKIAEXAMPLE
  secretKey: supersecret
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	sanitized := SanitizeConfigForLogging(cfg)
	policy, ok := sanitized["policy"].(map[string]interface{})
	if !ok {
		t.Fatalf("no policy section in %v", sanitized)
	}
	if policy["has_credentials"] != true {
		t.Error("has_credentials not set")
	}
	for _, section := range sanitized {
		m, ok := section.(map[string]interface{})
		if !ok {
			continue
		}
		for key, value := range m {
			if s, ok := value.(string); ok && (s == "AKIAEXAMPLE" || s == "supersecret") {
				t.Errorf("credential leaked into sanitized config at %q", key)
			}
		}
	}
}
