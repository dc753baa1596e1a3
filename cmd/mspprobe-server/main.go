// Mspprobe-server exposes a probe session to remote clients over WebSocket.
//
// It opens the probe's serial device once, serializes all client operations
// through a single session, and polls the link in the background so dropped
// probes are detected and reopened. With --announce the server publishes
// itself over mDNS so 'mspprobe scan' can find it.
//
// Usage:
//
//	mspprobe-server serve [flags]
//
// See 'mspprobe-server serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/mspprobe/internal/discovery"
	"github.com/muurk/mspprobe/internal/server"
	"github.com/muurk/mspprobe/internal/session"
	"github.com/muurk/mspprobe/internal/target"
	"github.com/muurk/mspprobe/internal/transport"
	"github.com/muurk/mspprobe/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mspprobe-server",
	Short: "MSPM0 probe WebSocket server",
	Long: `A WebSocket server exposing one MSPM0 debug probe to remote clients.

Clients exchange JSON operation requests over /ws; the server serializes
them onto the probe's serial link one at a time.

Note: For local probe operations, use the 'mspprobe' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	devicePath   string
	profileName  string
	host         string
	port         int
	logLevel     string
	announce     bool
	instanceName string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket server",
	Long: `Open the probe's serial device and serve its operations over
WebSocket.

The server polls the probe in the background and reopens the serial device
after a link drop. Operations in flight during a drop fail; clients decide
whether to retry.`,
	Example: `  # Serve the default device on the default port
  mspprobe-server serve

  # Custom device and port, with debug logging
  mspprobe-server serve --device /dev/ttyACM1 --port 9200 --log-level debug

  # Announce over mDNS for 'mspprobe scan'
  mspprobe-server serve --announce`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&devicePath, "device", "/dev/ttyACM0", "Serial device of the probe")
	serveCmd.Flags().StringVar(&profileName, "profile", "", "Target profile name (default profile if empty)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen host (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", discovery.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&announce, "announce", false, "Publish the server over mDNS")
	serveCmd.Flags().StringVar(&instanceName, "name", "", "mDNS instance name (hostname if empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	profile, err := target.Get(profileName)
	if err != nil {
		return err
	}

	tr, err := transport.OpenSerial(devicePath, profile.Link.Baud)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", devicePath, err)
	}

	sess := session.New(tr, profile)
	defer func() { _ = sess.Close() }()

	config := &server.Config{
		Host:         host,
		Port:         port,
		LogLevel:     logLevel,
		Device:       devicePath,
		Announce:     announce,
		InstanceName: instanceName,
	}

	srv, err := server.New(config, sess)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mspprobe-server %s (commit: %s)\n", version.Version, version.Commit)
	},
}
