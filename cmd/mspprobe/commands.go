package main

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/mspprobe/internal/discovery"
	"github.com/muurk/mspprobe/internal/image"
	"github.com/muurk/mspprobe/internal/session"
	"github.com/muurk/mspprobe/internal/target"
	"github.com/muurk/mspprobe/internal/transport"
	"github.com/muurk/mspprobe/internal/ui"
	"github.com/muurk/mspprobe/internal/verify"
)

// Common command flags
var (
	devicePath  string
	profileName string
	baudRate    int
	logLevel    string
	scanTimeout int
	skipConfirm bool
	plainOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&devicePath, "device", "/dev/ttyACM0", "Serial device of the probe")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Target profile name (default profile if empty)")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", 0, "Serial baud rate (profile default if 0)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readWordCmd)
	rootCmd.AddCommand(readWordsCmd)
	rootCmd.AddCommand(writeWordCmd)
	rootCmd.AddCommand(regCmd)
	rootCmd.AddCommand(pcCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(scanCmd)
}

// openSession opens the serial device and wraps it in a probe session.
// The caller owns the returned session and must Close it.
func openSession() (*session.Session, error) {
	profile, err := target.Get(profileName)
	if err != nil {
		return nil, err
	}

	baud := baudRate
	if baud == 0 {
		baud = profile.Link.Baud
	}

	tr, err := transport.OpenSerial(devicePath, baud)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", devicePath, err)
	}

	return session.New(tr, profile), nil
}

// parseAddr parses a 32-bit address or value, accepting 0x-prefixed hex.
func parseAddr(arg string) (uint32, error) {
	value, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address or value %q: %w", arg, err)
	}
	return uint32(value), nil
}

var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Halt the target CPU",
	Long: `Send a halt request to the target CPU.

Halt is fire-and-forget: the probe firmware does not always echo an
acknowledgement, so a silent target is not an error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.Halt(); err != nil {
			return fmt.Errorf("halt failed: %w", err)
		}
		fmt.Println("Target halted")
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the target CPU",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.Resume(); err != nil {
			return fmt.Errorf("resume failed: %w", err)
		}
		fmt.Println("Target resumed")
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read <addr> <length>",
	Short: "Read raw bytes from target memory",
	Example: `  # Read 64 bytes from the start of flash
  mspprobe read 0x0 64

  # Read the device ID region
  mspprobe read 0x41C00000 16`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddr(args[0])
		if err != nil {
			return err
		}
		length, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil {
			return fmt.Errorf("invalid length %q: %w", args[1], err)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		data, err := s.ReadBytes(addr, uint16(length))
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		printHexDump(addr, data)
		return nil
	},
}

var readWordCmd = &cobra.Command{
	Use:   "read-word <addr>",
	Short: "Read a 32-bit word from target memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddr(args[0])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		value, err := s.ReadWord(addr)
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		fmt.Printf("0x%08X: 0x%08X\n", addr, value)
		return nil
	},
}

var readWordsCmd = &cobra.Command{
	Use:   "read-words <addr> <count>",
	Short: "Read consecutive 32-bit words from target memory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddr(args[0])
		if err != nil {
			return err
		}
		count, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", args[1], err)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		words, err := s.ReadWords(addr, uint16(count))
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		for i, word := range words {
			fmt.Printf("0x%08X: 0x%08X\n", addr+uint32(i*4), word)
		}
		return nil
	},
}

var writeWordCmd = &cobra.Command{
	Use:   "write-word <addr> <value>",
	Short: "Write a 32-bit word to target memory",
	Long: `Write a 32-bit value to target memory.

Raw memory writes can corrupt a running target, so this command asks for
explicit confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddr(args[0])
		if err != nil {
			return err
		}
		value, err := parseAddr(args[1])
		if err != nil {
			return err
		}

		if !skipConfirm {
			confirmed := ui.ConfirmDangerousOperation(
				"Raw memory write",
				[]string{
					fmt.Sprintf("This writes 0x%08X to address 0x%08X", value, addr),
					"Writing to the wrong address can crash or corrupt the target",
				})
			if !confirmed {
				return fmt.Errorf("aborted")
			}
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.WriteWord(addr, value); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		fmt.Printf("Wrote 0x%08X to 0x%08X\n", value, addr)
		return nil
	},
}

func init() {
	writeWordCmd.Flags().BoolVar(&skipConfirm, "yes", false, "Skip the confirmation prompt")
}

var regCmd = &cobra.Command{
	Use:   "reg <index>",
	Short: "Read a core register",
	Long: `Read a core register through the probe's debug mailbox.

Index 15 aliases the program counter; see also 'mspprobe pc'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid register index %q: %w", args[0], err)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		value, err := s.ReadRegister(uint8(index))
		if err != nil {
			return fmt.Errorf("register read failed: %w", err)
		}
		fmt.Printf("r%d = 0x%08X\n", index, value)
		return nil
	},
}

var pcCmd = &cobra.Command{
	Use:   "pc",
	Short: "Read the program counter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		value, err := s.ReadPC()
		if err != nil {
			return fmt.Errorf("pc read failed: %w", err)
		}
		fmt.Printf("pc = 0x%08X\n", value)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <image.elf>",
	Short: "Verify on-chip flash against a program image",
	Long: `Read back every flash-resident section of the image and compare it
byte by byte against the target's flash contents.

The run aborts on the first readback failure; a partial comparison over a
flaky link would report phantom mismatches.`,
	Example: `  # Verify a firmware image
  mspprobe verify firmware.elf

  # Plain output, suitable for scripts and CI logs
  mspprobe verify firmware.elf --plain`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&plainOutput, "plain", false, "Plain text output without the live progress display")
}

func runVerify(cmd *cobra.Command, args []string) error {
	imagePath := args[0]

	profile, err := target.Get(profileName)
	if err != nil {
		return err
	}

	img, err := image.LoadELF(imagePath, profile)
	if err != nil {
		return err
	}
	if len(img.Sections) == 0 {
		return fmt.Errorf("image %s has no flash-resident sections for profile %s",
			imagePath, profile.Name)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	printer := ui.NewPrinter(nil)
	if !plainOutput {
		printer.PrintHeader("Flash verification", "mspprobe verify "+imagePath,
			map[string]string{
				"Device":  devicePath,
				"Profile": profile.Name,
				"Image":   fmt.Sprintf("%d bytes in %d sections", img.TotalBytes(), len(img.Sections)),
			})
	}

	verifier := verify.New(s.ReadFlash, profile.Link.MaxReadChunk)

	var result *verify.Result
	if plainOutput {
		result = verifier.Run(img)
	} else {
		prog := tea.NewProgram(ui.NewProgressModel("Reading back flash..."))
		go func() {
			verifier.Progress = func(done, total uint32) {
				prog.Send(ui.ProgressMsg{Done: done, Total: total})
			}
			result = verifier.Run(img)
			prog.Send(ui.ProgressDoneMsg{})
		}()
		if _, err := prog.Run(); err != nil {
			return fmt.Errorf("progress display failed: %w", err)
		}
	}

	printer.Print(result.Render())

	if !result.Success() {
		if !plainOutput {
			printer.PrintError("Flash verification",
				fmt.Errorf("%d mismatched bytes, %d errors", result.MismatchCount(), len(result.Errors)),
				[]string{
					"Reflash the target and verify again",
					"Check the serial link if readback errors occurred",
					"Confirm the image matches the programmed firmware version",
				})
		}
		return fmt.Errorf("verification failed")
	}

	if !plainOutput {
		printer.PrintSuccess("Flash contents verified", map[string]string{
			"Sections": fmt.Sprintf("%d", len(result.Verified)),
			"Bytes":    fmt.Sprintf("%d", img.TotalBytes()),
			"Digest":   fmt.Sprintf("0x%08X", img.Digest()),
		})
	}
	return nil
}

var mapCmd = &cobra.Command{
	Use:   "map <image.elf>",
	Short: "Show the flash memory map of a program image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := target.Get(profileName)
		if err != nil {
			return err
		}

		img, err := image.LoadELF(args[0], profile)
		if err != nil {
			return err
		}

		fmt.Printf("Flash map for %s (profile %s):\n", args[0], profile.Name)
		for _, r := range img.MemoryMap() {
			fmt.Printf("  0x%08X - 0x%08X  (%d bytes)\n", r.Start, r.End, r.End-r.Start+1)
		}
		fmt.Printf("Entry point: 0x%08X\n", img.EntryPoint)
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest <image.elf>",
	Short: "Compute the flash digest of a program image",
	Long: `Compute the 32-bit block checksum over the image's flash sections,
each section's address (little-endian) followed by its bytes, in address
order. The same digest the target firmware computes over its own flash.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := target.Get(profileName)
		if err != nil {
			return err
		}

		img, err := image.LoadELF(args[0], profile)
		if err != nil {
			return err
		}

		fmt.Printf("0x%08X  (%d bytes in %d sections)\n",
			img.Digest(), img.TotalBytes(), len(img.Sections))
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for probe servers on the network",
	Long: `Scan for mspprobe-server instances using mDNS/DNS-SD discovery.

Discovered servers are listed with their address, WebSocket endpoint, and
announced target profile.`,
	Example: `  # Scan for 10 seconds (default)
  mspprobe scan

  # Quick 3-second scan
  mspprobe scan --timeout 3`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for probe servers (timeout: %ds)...\n\n", scanTimeout)

	servers, err := discovery.Scan(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(servers) == 0 {
		fmt.Println("No probe servers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure mspprobe-server is running with --announce")
		fmt.Println("  - Check that mDNS traffic is allowed on your network")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(servers))
	for i, srv := range servers {
		fmt.Printf("%d. %s\n", i+1, srv.Name)
		fmt.Printf("   Endpoint: %s\n", srv.URL())
		fmt.Printf("   Profile:  %s\n", srv.Profile())
		if len(srv.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", srv.Metadata)
		}
		fmt.Println()
	}
	return nil
}

// printHexDump prints data in 16-byte rows with addresses and ASCII.
func printHexDump(addr uint32, data []byte) {
	for offset := 0; offset < len(data); offset += 16 {
		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[offset:end]

		fmt.Printf("0x%08X  ", addr+uint32(offset))
		for i := 0; i < 16; i++ {
			if i < len(row) {
				fmt.Printf("%02X ", row[i])
			} else {
				fmt.Print("   ")
			}
			if i == 7 {
				fmt.Print(" ")
			}
		}
		fmt.Print(" |")
		for _, b := range row {
			if b >= 32 && b <= 126 {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}
		fmt.Println("|")
	}
}
