// Mspprobe is a control and flash-verification utility for MSPM0 debug
// probes.
//
// It talks to the probe over a serial link using a private framed protocol,
// and provides CPU control (halt/resume), memory and register access, and
// byte-exact verification of on-chip flash against a program image.
//
// Usage:
//
//	mspprobe [command] [flags]
//
// See 'mspprobe --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/mspprobe/internal/logging"
	"github.com/muurk/mspprobe/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mspprobe",
	Short: "MSPM0 debug probe utility",
	Long: `A host-side utility for MSPM0 debug probes.

Provides CPU control, memory and register access, and flash verification
over the probe's framed serial protocol.

Note: For serving probe operations to remote clients, use the separate
'mspprobe-server' utility.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mspprobe %s (commit: %s)\n", version.Version, version.Commit)
	},
}
