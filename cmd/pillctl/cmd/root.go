package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/pilldispenser/internal/config"
)

var (
	configPath string
	verbose    bool

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pillctl",
	Short: "Pill dispenser bench tool",
	Long: `pillctl - bench tool for the pill dispenser.

Talks to the LoRa modem over a serial port or a WebSocket serial bridge, reads and
erases the dispenser EEPROM from an image file or a Linux I2C bus, and runs the
firmware on simulated hardware.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the PILLCTL_PASSWORD
environment variable, or prompted interactively if not set.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Modem serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (serial only, default 9600)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket serial bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// loadConfig reads the config file, applies flag overrides, then validates and fills defaults
func loadConfig(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg = &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if portName != "" {
		cfg.Modem.Port = portName
		cfg.Modem.URL = ""
	}
	if wsURL != "" {
		cfg.Modem.URL = wsURL
		cfg.Modem.Port = ""
	}
	if baudRate != 0 {
		cfg.Modem.Baud = baudRate
	}
	applyEEPROMFlags()
	applySimulationFlags(cmd)

	err := config.Validate(cfg)
	if err != nil {
		return err
	}
	config.Normalize(cfg)
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
