package main

import (
	"fmt"
	"os"

	"dnsanchor/cmd"
	"dnsanchor/internal/enforce"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	var rootCmd = &cobra.Command{
		Use:   "dnsanchor",
		Short: "DNS enforcement agent that pins resolver configuration",
		Long: `dnsanchor pins a list of DNS servers on every active network adapter and
keeps them pinned. It snapshots each adapter's original configuration,
monitors the OS for changes that would undo the enforced servers, corrects
drift as it happens, and restores the originals on shutdown.`,
	}

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewStatusCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(enforce.Code(err))
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dnsanchor v%s\n", version)
		},
	}
}
