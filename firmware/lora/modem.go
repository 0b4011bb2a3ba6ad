package lora

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const maxLineLen = 80

var (
	// ErrTimeout is returned when no matching response arrived in time
	ErrTimeout = errors.New("lora: response timeout")
	// ErrRejected is returned when the modem explicitly reports a failure
	ErrRejected = errors.New("lora: rejected")
	// ErrUnexpectedResponse is returned for a response that ends an exchange without success
	ErrUnexpectedResponse = errors.New("lora: unexpected response")
	// ErrUART is returned when the serial link fails
	ErrUART = errors.New("lora: uart failure")
)

// Info is what the modem reports about itself during init
type Info struct {
	Version string
	DevEUI  string
}

// Modem runs AT command exchanges with a LoRa-E5 style modem. It is not safe for
// concurrent use and is only used from the main loop.
type Modem struct {
	uart   UART
	cfg    Config
	clock  Clock
	logger *slog.Logger

	joined bool
}

// New creates a Modem on uart. Zero values in cfg use DefaultConfig.
func New(uart UART, cfg Config) *Modem {
	cfg.setDefaults()
	return &Modem{
		uart:   uart,
		cfg:    cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

// Joined reports whether the last join succeeded
func (m *Modem) Joined() bool {
	return m.joined
}

// Setup runs the init sequence and joins the network. Failures are logged and leave the
// modem unjoined, which turns Send into a no-op.
func (m *Modem) Setup() bool {
	m.clock.Sleep(m.cfg.StartupDelay)

	info, err := m.Init()
	if err != nil {
		m.logger.Error("error initializing modem", "err", err)
		return false
	}
	m.logger.Info("modem initialized", "version", info.Version, "dev_eui", info.DevEUI)

	err = m.Join(m.cfg.Retries, m.cfg.JoinTimeout)
	if err != nil {
		m.logger.Error("error joining network", "err", err)
		return false
	}
	return true
}

// Init runs every command of the init sequence in order, each with its own retry budget.
// The first command that exhausts its retries fails the sequence.
func (m *Modem) Init() (Info, error) {
	var info Info
	for _, cmd := range InitSequence(m.cfg) {
		line, err := m.command(cmd)
		if err != nil {
			return info, err
		}

		switch cmd.Name {
		case "version":
			info.Version = responseValue(line, cmd.Marker)
		case "deveui":
			info.DevEUI = responseValue(line, cmd.Marker)
		}
	}
	return info, nil
}

func (m *Modem) command(cmd Command) (string, error) {
	var err error
	for attempt := 1; attempt <= m.cfg.Retries; attempt++ {
		var line string
		line, err = m.exchange(cmd)
		if err == nil {
			m.logger.Debug("modem command ok", "command", cmd.Name, "response", line)
			return line, nil
		}
		m.logger.Warn("modem command failed", "command", cmd.Name, "attempt", attempt, "err", err)
	}
	return "", fmt.Errorf("error running %s command after %d attempts: %w", cmd.Name, m.cfg.Retries, err)
}

// exchange sends cmd and waits for its marker. Lines that are neither the marker nor an
// error are skipped.
func (m *Modem) exchange(cmd Command) (string, error) {
	err := m.write(cmd.Text)
	if err != nil {
		return "", err
	}

	deadline := m.clock.Now().Add(m.cfg.CommandTimeout)
	for {
		line, err := m.readLine(deadline)
		if err != nil {
			return "", err
		}
		if strings.Contains(line, cmd.Marker) {
			return line, nil
		}
		if strings.Contains(line, errorMarker) {
			return "", fmt.Errorf("%w: %q", ErrUnexpectedResponse, line)
		}
	}
}

// Join sends the join command up to maxRetries times. Each attempt waits up to timeout
// and ends on the first line that is not join progress.
func (m *Modem) Join(maxRetries int, timeout time.Duration) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = m.joinAttempt(timeout)
		if err == nil {
			m.joined = true
			m.logger.Info("joined network", "attempt", attempt)
			return nil
		}
		m.logger.Warn("join attempt failed", "attempt", attempt, "err", err)
	}
	m.joined = false
	return fmt.Errorf("error joining after %d attempts: %w", maxRetries, err)
}

func (m *Modem) joinAttempt(timeout time.Duration) error {
	err := m.write(joinCommand)
	if err != nil {
		return err
	}

	deadline := m.clock.Now().Add(timeout)
	for {
		line, err := m.readLine(deadline)
		if err != nil {
			return err
		}

		switch classifyJoin(line) {
		case joinSuccess:
			return nil
		case joinRejected:
			return fmt.Errorf("%w: %q", ErrRejected, line)
		case joinProgress:
			m.logger.Debug("join in progress", "response", line)
		default:
			return fmt.Errorf("%w: %q", ErrUnexpectedResponse, line)
		}
	}
}

// Send transmits text as a network message when joined
func (m *Modem) Send(text string) error {
	if !m.joined {
		return nil
	}
	return m.SendAndConfirm(MessageCommand(text), m.cfg.MessageTimeout)
}

// SendAndConfirm writes command and waits for the message completion marker. Other
// lines do not end the wait. There is no retry.
func (m *Modem) SendAndConfirm(command string, timeout time.Duration) error {
	err := m.write(command)
	if err != nil {
		return err
	}

	deadline := m.clock.Now().Add(timeout)
	for {
		line, err := m.readLine(deadline)
		if err != nil {
			return fmt.Errorf("error confirming message: %w", err)
		}
		if strings.Contains(line, msgDone) {
			return nil
		}
		m.logger.Debug("message progress", "response", line)
	}
}

// write discards unread input and sends one CRLF terminated command line
func (m *Modem) write(cmd string) error {
	m.flush()

	m.logger.Debug("modem write", "command", cmd)
	_, err := m.uart.Write([]byte(cmd + "\r\n"))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUART, err)
	}
	return nil
}

func (m *Modem) flush() {
	var buf [32]byte
	for m.uart.Buffered() > 0 {
		n, err := m.uart.Read(buf[:])
		if err != nil || n == 0 {
			return
		}
	}
}

// readLine returns the next non-empty line terminated by CR or LF. Bytes beyond
// maxLineLen are dropped.
func (m *Modem) readLine(deadline time.Time) (string, error) {
	line := make([]byte, 0, maxLineLen)
	var buf [1]byte
	for {
		if m.uart.Buffered() == 0 {
			// an empty read reports a link that has gone away without consuming input
			_, err := m.uart.Read(buf[:0])
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrUART, err)
			}
			if !m.clock.Now().Before(deadline) {
				return "", ErrTimeout
			}
			m.clock.Sleep(m.cfg.PollInterval)
			continue
		}

		n, err := m.uart.Read(buf[:])
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUART, err)
		}
		if n == 0 {
			continue
		}

		switch c := buf[0]; c {
		case '\r', '\n':
			if len(line) > 0 {
				return string(line), nil
			}
		default:
			if len(line) < maxLineLen {
				line = append(line, c)
			}
		}
	}
}
