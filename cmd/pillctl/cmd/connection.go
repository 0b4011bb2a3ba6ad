package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/calvinmclean/pilldispenser/internal/hostio"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("PILLCTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// not a terminal, read a plain line instead
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// openModem opens the configured serial port or WebSocket bridge as a buffered UART
func openModem(ctx context.Context) (*hostio.BufferedPort, string, error) {
	m := cfg.Modem

	if m.URL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := hostio.OpenWebSocket(ctx, m.URL, hostio.WebSocketOptions{
			Username:      wsUsername,
			Password:      password,
			SkipSSLVerify: wsNoSSLVerify,
		})
		if err != nil {
			return nil, "", err
		}
		return hostio.NewBufferedPort(conn), fmt.Sprintf("WebSocket: %s", m.URL), nil
	}

	if m.Port != "" {
		conn, err := hostio.OpenSerial(m.Port, m.Baud)
		if err != nil {
			return nil, "", err
		}
		return hostio.NewBufferedPort(conn), fmt.Sprintf("Serial: %s @ %d baud", m.Port, m.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}
