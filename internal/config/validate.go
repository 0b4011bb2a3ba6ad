// internal/config/validate.go
package config

import (
	"encoding/hex"
	"fmt"

	"github.com/calvinmclean/pilldispenser"
)

// Validate checks configuration correctness.
// It performs declarative validation only; zero values mean "use the default".
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	m := cfg.Modem
	if m.Port != "" && m.URL != "" {
		return fmt.Errorf("modem: port %q and url %q are mutually exclusive", m.Port, m.URL)
	}
	if m.Baud < 0 {
		return fmt.Errorf("modem: baud must be positive, got %d", m.Baud)
	}
	if m.AppKey != "" {
		key, err := hex.DecodeString(m.AppKey)
		if err != nil || len(key) != 16 {
			return fmt.Errorf("modem: app_key must be 16 bytes of hex")
		}
	}
	switch m.Class {
	case "", "A", "B", "C":
	default:
		return fmt.Errorf("modem: class must be A, B or C, got %q", m.Class)
	}
	if m.LoraPort > 223 {
		return fmt.Errorf("modem: lora_port must be 1-223, got %d", m.LoraPort)
	}
	for name, v := range map[string]int{
		"retries":            m.Retries,
		"command_timeout_ms": m.CommandTimeoutMs,
		"join_timeout_ms":    m.JoinTimeoutMs,
		"message_timeout_ms": m.MessageTimeoutMs,
	} {
		if v < 0 {
			return fmt.Errorf("modem: %s must not be negative, got %d", name, v)
		}
	}

	e := cfg.EEPROM
	if e.Image != "" && e.I2CBus != "" {
		return fmt.Errorf("eeprom: image %q and i2c_bus %q are mutually exclusive", e.Image, e.I2CBus)
	}
	if e.Address > 0x7F {
		return fmt.Errorf("eeprom: address 0x%x is not a 7-bit bus address", e.Address)
	}

	s := cfg.Simulation
	if s.Pills < 0 || s.Pills > pilldispenser.Days {
		return fmt.Errorf("simulation: pills must be 0-%d, got %d", pilldispenser.Days, s.Pills)
	}
	if s.DispenseIntervalMs < 0 || s.DetectionWindowMs < 0 || s.JoinFailures < 0 || s.StartPosition < 0 {
		return fmt.Errorf("simulation: values must not be negative")
	}

	return nil
}
