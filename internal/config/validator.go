package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"dnsanchor/internal/netconf"
)

// ValidateConfig checks the configuration for values the agent cannot run
// with. Address literals are rejected here so a bad config file fails the
// process before any adapter is touched.
func ValidateConfig(cfg *Config) error {
	if len(cfg.Enforce.Servers) == 0 && cfg.Policy.Bucket == "" {
		return fmt.Errorf("no DNS servers configured: set enforce.servers or a policy source")
	}

	if len(cfg.Enforce.Servers) > 0 {
		if _, err := netconf.ParseServers(cfg.Enforce.Servers); err != nil {
			return fmt.Errorf("enforce.servers: %w", err)
		}
	}

	if cfg.Enforce.PollInterval < time.Second {
		return fmt.Errorf("enforce.pollInterval must be at least 1s, got %s", cfg.Enforce.PollInterval)
	}
	if cfg.Enforce.SettleDelay <= 0 {
		return fmt.Errorf("enforce.settleDelay must be positive, got %s", cfg.Enforce.SettleDelay)
	}

	if cfg.Policy.Bucket != "" {
		if cfg.Policy.Region == "" {
			return fmt.Errorf("policy.region is required when policy.bucket is set")
		}
		if cfg.Policy.PolicyPath == "" {
			return fmt.Errorf("policy.policyPath is required when policy.bucket is set")
		}
		if cfg.Policy.UpdateInterval < time.Minute {
			return fmt.Errorf("policy.updateInterval must be at least 1m, got %s", cfg.Policy.UpdateInterval)
		}
	}

	if cfg.Probe.Enabled && cfg.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", cfg.Probe.Timeout)
	}

	return nil
}

// ValidateCredentialSecurity checks for insecure credential practices
func ValidateCredentialSecurity(cfg *Config) {
	warnings := []string{}

	// Check for AWS credentials in config
	if cfg.Policy.AccessKeyID != "" || cfg.Policy.SecretKey != "" {
		warnings = append(warnings, "AWS credentials found in configuration file - consider using environment variables or IAM roles")
	}

	// Check if running in debug mode
	if cfg.Agent.LogLevel == "debug" {
		warnings = append(warnings, "Running in debug mode - adapter and server details will be logged verbosely")
	}

	for _, warning := range warnings {
		logrus.Warn(fmt.Sprintf("SECURITY: %s", warning))
	}
}

// SanitizeConfigForLogging returns a sanitized version of the config for logging
func SanitizeConfigForLogging(cfg *Config) map[string]interface{} {
	sanitized := make(map[string]interface{})

	agent := make(map[string]interface{})
	agent["log_level"] = cfg.Agent.LogLevel
	sanitized["agent"] = agent

	enforce := make(map[string]interface{})
	enforce["servers"] = cfg.Enforce.Servers
	enforce["poll_interval"] = cfg.Enforce.PollInterval.String()
	enforce["settle_delay"] = cfg.Enforce.SettleDelay.String()
	sanitized["enforce"] = enforce

	policy := make(map[string]interface{})
	policy["bucket"] = cfg.Policy.Bucket
	policy["region"] = cfg.Policy.Region
	policy["policy_path"] = cfg.Policy.PolicyPath
	policy["update_interval"] = cfg.Policy.UpdateInterval.String()
	policy["has_credentials"] = cfg.Policy.AccessKeyID != "" || cfg.Policy.SecretKey != ""
	sanitized["policy"] = policy

	probe := make(map[string]interface{})
	probe["enabled"] = cfg.Probe.Enabled
	probe["timeout"] = cfg.Probe.Timeout.String()
	sanitized["probe"] = probe

	return sanitized
}
