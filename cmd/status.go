package cmd

import (
	"fmt"
	"strings"

	"dnsanchor/internal/audit"
	"dnsanchor/internal/config"
	"dnsanchor/internal/netconf"
	"dnsanchor/internal/probe"

	"github.com/spf13/cobra"
)

// StatusOptions contains options for the status command
type StatusOptions struct {
	ConfigFile string
}

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show adapters, their DNS configuration and server health",
		Long:  `Display every active network adapter with its current DNS servers and probe the configured enforcement targets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file path")
	return cmd
}

func runStatus(opts *StatusOptions) error {
	fmt.Println("🔍 dnsanchor Status")
	fmt.Println("===================")

	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	configurator, err := netconf.NewSystemConfigurator()
	if err != nil {
		return fmt.Errorf("failed to create system configurator: %v", err)
	}

	fmt.Println("\n🌐 Active adapters:")
	adapters, err := configurator.ListActive()
	if err != nil {
		fmt.Printf("❌ Failed to enumerate adapters: %v\n", err)
	} else if len(adapters) == 0 {
		fmt.Println("⚠️  No active adapters found")
	} else {
		for _, adapter := range adapters {
			mode := "static"
			if adapter.Automatic {
				mode = "automatic (DHCP)"
			}
			servers := strings.Join(netconf.FormatServers(adapter.Servers), ", ")
			if servers == "" {
				servers = "-"
			}
			fmt.Printf("  %-30s %-18s %s\n", adapter.Name, mode, servers)
		}
	}

	if len(cfg.Enforce.Servers) > 0 {
		fmt.Println("\n📡 Configured enforcement targets:")
		for _, result := range probe.Check(cfg.Enforce.Servers, cfg.Probe.Timeout) {
			if result.Ok() {
				fmt.Printf("  ✅ %s answered in %s\n", result.Server, result.RTT)
			} else {
				fmt.Printf("  ❌ %s did not answer: %v\n", result.Server, result.Err)
			}
		}
	}

	if path := audit.GetLogPath(); path != "" {
		fmt.Printf("\n📝 Audit log: %s\n", path)
	}

	fmt.Println("\n💡 To start enforcement:")
	fmt.Println("sudo dnsanchor run")
	return nil
}
