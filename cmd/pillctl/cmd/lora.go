package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/pilldispenser/firmware/lora"
)

var loraCmd = &cobra.Command{
	Use:   "lora",
	Short: "Exercise the LoRa modem",
}

var loraSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the init sequence and join the network",
	RunE:  runLoraSetup,
}

var loraJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the network without running the init sequence",
	RunE:  runLoraJoin,
}

var loraSendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Set up the modem and send one message",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoraSend,
}

var (
	joinRetries int
	joinTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(loraCmd)
	loraCmd.AddCommand(loraSetupCmd, loraJoinCmd, loraSendCmd)

	loraJoinCmd.Flags().IntVar(&joinRetries, "retries", 0, "Join attempts (default from config)")
	loraJoinCmd.Flags().DurationVar(&joinTimeout, "timeout", 0, "Timeout of each join attempt (default from config)")
}

// withModem opens the modem connection and runs fn with a protocol engine on it
func withModem(cmd *cobra.Command, fn func(*lora.Modem) error) error {
	port, connInfo, err := openModem(cmd.Context())
	if err != nil {
		return err
	}
	defer port.Close()

	logger.Info("connected to modem", "connection", connInfo)

	loraCfg := cfg.Modem.LoraConfig()
	loraCfg.StartupDelay = 100 * time.Millisecond
	loraCfg.Logger = logger

	return fn(lora.New(port, loraCfg))
}

func runLoraSetup(cmd *cobra.Command, _ []string) error {
	return withModem(cmd, func(m *lora.Modem) error {
		info, err := m.Init()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %s\ndev_eui: %s\n", info.Version, info.DevEUI)

		err = m.Join(cfg.Modem.Retries, time.Duration(cfg.Modem.JoinTimeoutMs)*time.Millisecond)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "joined")
		return nil
	})
}

func runLoraJoin(cmd *cobra.Command, _ []string) error {
	retries := joinRetries
	if retries == 0 {
		retries = cfg.Modem.Retries
	}
	timeout := joinTimeout
	if timeout == 0 {
		timeout = time.Duration(cfg.Modem.JoinTimeoutMs) * time.Millisecond
	}

	return withModem(cmd, func(m *lora.Modem) error {
		err := m.Join(retries, timeout)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "joined")
		return nil
	})
}

func runLoraSend(cmd *cobra.Command, args []string) error {
	return withModem(cmd, func(m *lora.Modem) error {
		if !m.Setup() {
			return errors.New("modem did not join the network")
		}

		err := m.SendAndConfirm(lora.MessageCommand(args[0]), time.Duration(cfg.Modem.MessageTimeoutMs)*time.Millisecond)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sent")
		return nil
	})
}
