// Package config defines configuration structures and loading logic for
// dnsanchor. It supports YAML configuration files with validation and
// sensible defaults; a handful of settings can additionally be overridden
// from environment variables.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Enforce EnforceConfig `yaml:"enforce"`
	Policy  PolicyConfig  `yaml:"policy"`
	Probe   ProbeConfig   `yaml:"probe"`
	Audit   AuditConfig   `yaml:"audit"`
}

type AgentConfig struct {
	LogLevel string `yaml:"logLevel"`
}

// EnforceConfig names the DNS servers to pin and tunes the change monitor.
type EnforceConfig struct {
	// Servers are the addresses to enforce, in resolution order. Ignored
	// when a policy source is configured and reachable.
	Servers []string `yaml:"servers"`

	// PollInterval bounds drift-detection latency on platforms that poll
	// for changes (and is the fallback poll period elsewhere).
	PollInterval time.Duration `yaml:"pollInterval"`

	// SettleDelay is how long to let a burst of change notifications
	// quiet down before re-evaluating once.
	SettleDelay time.Duration `yaml:"settleDelay"`
}

// PolicyConfig points at an S3 object holding the enforcement policy.
type PolicyConfig struct {
	Bucket         string        `yaml:"bucket"`
	Region         string        `yaml:"region"`
	PolicyPath     string        `yaml:"policyPath"`
	UpdateInterval time.Duration `yaml:"updateInterval"`
	AccessKeyID    string        `yaml:"accessKeyId,omitempty"`
	SecretKey      string        `yaml:"secretKey,omitempty"`
}

type ProbeConfig struct {
	// Enabled probes the enforced servers before Set and logs a warning
	// for any that do not answer.
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// Set defaults
	cfg := &Config{
		Agent: AgentConfig{
			LogLevel: "info",
		},
		Enforce: EnforceConfig{
			PollInterval: 5 * time.Second,
			SettleDelay:  500 * time.Millisecond,
		},
		Policy: PolicyConfig{
			UpdateInterval: 5 * time.Minute,
		},
		Probe: ProbeConfig{
			Enabled: true,
			Timeout: 2 * time.Second,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
	}

	// If no path specified, try default locations
	if path == "" {
		for _, p := range []string{"./config.yaml", "/etc/dnsanchor/config.yaml"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	// If we have a config file, load it
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
