package device

import (
	"io"
	"log/slog"
	"time"

	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
)

// Timing has the fixed waits of the main loop
type Timing struct {
	// DispenseInterval is the wait before each day's rotation
	DispenseInterval time.Duration
	// DetectionWindow is how long the piezo is watched after a rotation
	DetectionWindow time.Duration
	// RecoverySettle is the extra delay after re-homing the rotor at boot
	RecoverySettle time.Duration
	// PollInterval paces the main loop while waiting for events
	PollInterval time.Duration
	// BlinkInterval is the LED half-period while idle
	BlinkInterval time.Duration
	// Debounce is the refractory window for button edges
	Debounce time.Duration
}

// DefaultTiming uses the intervals of the shipped firmware
func DefaultTiming() Timing {
	return Timing{
		DispenseInterval: 30 * time.Second,
		DetectionWindow:  2 * time.Second,
		RecoverySettle:   1 * time.Second,
		PollInterval:     10 * time.Millisecond,
		BlinkInterval:    500 * time.Millisecond,
		Debounce:         50 * time.Millisecond,
	}
}

// Clock abstracts time for the main loop
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Config has the device-level values for the main loop
type Config struct {
	Layout eeprom.Layout
	Timing Timing

	// Console receives status and log dumps. Defaults to io.Discard
	Console io.Writer
	Logger  *slog.Logger
	Clock   Clock
}

func (c *Config) setDefaults() {
	if c.Layout == (eeprom.Layout{}) {
		c.Layout = eeprom.DefaultLayout()
	}
	def := DefaultTiming()
	if c.Timing.DispenseInterval == 0 {
		c.Timing.DispenseInterval = def.DispenseInterval
	}
	if c.Timing.DetectionWindow == 0 {
		c.Timing.DetectionWindow = def.DetectionWindow
	}
	if c.Timing.RecoverySettle == 0 {
		c.Timing.RecoverySettle = def.RecoverySettle
	}
	if c.Timing.PollInterval == 0 {
		c.Timing.PollInterval = def.PollInterval
	}
	if c.Timing.BlinkInterval == 0 {
		c.Timing.BlinkInterval = def.BlinkInterval
	}
	if c.Timing.Debounce == 0 {
		c.Timing.Debounce = def.Debounce
	}
	if c.Console == nil {
		c.Console = io.Discard
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
}
