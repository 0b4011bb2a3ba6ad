package lora

import (
	"io"
	"log/slog"
	"time"
)

// UART is the serial link to the modem. machine.UART implements it.
type UART interface {
	io.Reader
	io.Writer
	Buffered() int
}

// Clock abstracts time for response polling
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Config has the network settings and timeouts of the modem
type Config struct {
	AppKey string
	Port   uint8
	Class  string

	// CommandTimeout bounds the wait for the response of each init command
	CommandTimeout time.Duration
	// Retries is the number of tries for each init command and for the join
	Retries int
	// JoinTimeout bounds each join attempt
	JoinTimeout time.Duration
	// MessageTimeout bounds the wait for a message confirmation
	MessageTimeout time.Duration
	// StartupDelay is waited before the first command so the modem can boot
	StartupDelay time.Duration
	// PollInterval is the sleep between checks for received bytes
	PollInterval time.Duration

	Clock  Clock
	Logger *slog.Logger
}

// DefaultConfig has the network settings the device is provisioned with
func DefaultConfig() Config {
	return Config{
		AppKey:         "5c43da79b99e52403bce20fb9770dc42",
		Port:           8,
		Class:          "A",
		CommandTimeout: 500 * time.Millisecond,
		Retries:        3,
		JoinTimeout:    20 * time.Second,
		MessageTimeout: 10 * time.Second,
		StartupDelay:   2 * time.Second,
		PollInterval:   5 * time.Millisecond,
	}
}

func (c *Config) setDefaults() {
	def := DefaultConfig()
	if c.AppKey == "" {
		c.AppKey = def.AppKey
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.Class == "" {
		c.Class = def.Class
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = def.CommandTimeout
	}
	if c.Retries <= 0 {
		c.Retries = def.Retries
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = def.JoinTimeout
	}
	if c.MessageTimeout == 0 {
		c.MessageTimeout = def.MessageTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
