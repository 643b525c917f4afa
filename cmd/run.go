// Package cmd implements the command-line interface for dnsanchor. It
// provides subcommands for running the enforcement agent, inspecting
// adapter state and printing version information.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"dnsanchor/internal/audit"
	"dnsanchor/internal/config"
	"dnsanchor/internal/enforce"
	"dnsanchor/internal/logging"
	"dnsanchor/internal/netconf"
	"dnsanchor/internal/policy"
	"dnsanchor/internal/probe"
	"dnsanchor/internal/watch"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RunOptions contains options for the run command
type RunOptions struct {
	ConfigFile string
	Servers    []string
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the DNS enforcement agent",
		Long: `Pin the configured DNS servers on every active network adapter and keep
them pinned: the agent snapshots each adapter's original configuration,
watches the OS for changes that undo the enforced servers, re-applies them
on drift, and restores the originals on shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file path")
	cmd.Flags().StringSliceVar(&opts.Servers, "server", nil, "DNS server to enforce (repeatable, overrides config)")

	return cmd
}

func runAgent(opts *RunOptions) error {
	// Load configuration
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if len(opts.Servers) > 0 {
		cfg.Enforce.Servers = opts.Servers
	}

	logging.Setup(cfg.Agent.LogLevel)

	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}
	config.ValidateCredentialSecurity(cfg)
	logrus.WithFields(logrus.Fields(config.SanitizeConfigForLogging(cfg))).Info("Configuration loaded")

	if cfg.Audit.Enabled {
		if err := audit.Initialize(); err != nil {
			logrus.WithError(err).Warn("Failed to initialize audit logging")
		}
		defer audit.Close()
	}

	logrus.Info("Starting dnsanchor")

	configurator, err := netconf.NewSystemConfigurator()
	if err != nil {
		return fmt.Errorf("failed to create system configurator: %v", err)
	}

	fingerprint := func() (string, error) {
		adapters, err := configurator.ListActive()
		if err != nil {
			return "", err
		}
		return netconf.Fingerprint(adapters), nil
	}
	monitor := watch.NewSystemMonitor(fingerprint, cfg.Enforce.PollInterval, cfg.Enforce.SettleDelay)

	session := enforce.NewSession(configurator, monitor)

	// Background failures arrive here, never as return codes. The session
	// already logs each event; the counter feeds the shutdown summary.
	var backgroundErrors atomic.Int64
	sink := func(ev enforce.ErrorEvent) {
		backgroundErrors.Add(1)
	}

	if err := session.Initialize(sink); err != nil {
		return err
	}
	defer session.Deinitialize()

	// Resolve the server list: an S3 policy wins over the local config.
	servers := cfg.Enforce.Servers
	var fetcher *policy.Fetcher
	if cfg.Policy.Bucket != "" {
		fetcher, err = policy.NewFetcher(&cfg.Policy)
		if err != nil {
			logrus.WithError(err).Warn("Failed to create policy fetcher, using local server list")
		} else if doc, err := fetcher.Fetch(context.Background()); err != nil {
			logrus.WithError(err).Warn("Failed to fetch policy, using local server list")
		} else {
			servers = doc.Servers
		}
	}
	if len(servers) == 0 {
		return fmt.Errorf("no DNS servers to enforce")
	}

	if cfg.Probe.Enabled {
		probeServers(servers, cfg.Probe.Timeout)
	}

	if err := session.Set(servers); err != nil {
		// Bad input is fatal; a failed enumeration is retried by the
		// armed monitor, so the agent keeps running.
		if enforce.Code(err) == enforce.StatusInvalidArgument {
			return err
		}
		logrus.WithError(err).Warn("Initial enforcement incomplete, monitoring will retry")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if fetcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pollPolicy(ctx, fetcher, session, servers, cfg.Policy.UpdateInterval)
		}()
	}

	logrus.WithField("servers", servers).Info("dnsanchor is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logrus.Info("Shutting down, restoring original DNS configuration")
	cancel()
	wg.Wait()

	if err := session.Reset(); err != nil {
		logrus.WithError(err).Error("Failed to reset enforcement")
	}
	if err := session.Deinitialize(); err != nil {
		logrus.WithError(err).Error("Failed to deinitialize session")
	}

	if n := backgroundErrors.Load(); n > 0 {
		logrus.WithField("count", n).Warn("Background errors occurred during enforcement")
	}
	return nil
}

// pollPolicy re-fetches the enforcement policy and re-arms the session
// when the server list changes. Snapshots are preserved across re-Sets, so
// the originals restored at shutdown predate the first policy, not the
// latest one.
func pollPolicy(ctx context.Context, fetcher *policy.Fetcher, session *enforce.Session, current []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			doc, err := fetcher.Fetch(ctx)
			if err != nil {
				logrus.WithError(err).Warn("Policy refresh failed")
				continue
			}
			if !policy.ServersChanged(current, doc.Servers) {
				continue
			}

			logrus.WithFields(logrus.Fields{
				"old": current,
				"new": doc.Servers,
			}).Info("Enforcement policy changed, re-arming")

			if err := session.Set(doc.Servers); err != nil {
				logrus.WithError(err).Error("Failed to apply updated policy")
				continue
			}
			current = doc.Servers
		}
	}
}

func probeServers(servers []string, timeout time.Duration) {
	for _, result := range probe.Check(servers, timeout) {
		if result.Ok() {
			logrus.WithFields(logrus.Fields{
				"server": result.Server,
				"rtt":    result.RTT,
			}).Debug("DNS server answered probe")
			continue
		}
		logrus.WithError(result.Err).WithField("server", result.Server).
			Warn("DNS server did not answer probe; enforcing it anyway")
	}
}
