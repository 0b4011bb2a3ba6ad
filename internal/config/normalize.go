// internal/config/normalize.go
package config

import (
	"github.com/calvinmclean/pilldispenser"
	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
	"github.com/calvinmclean/pilldispenser/firmware/lora"
)

const defaultBaud = 9600

// Normalize fills unset values with the firmware defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	def := lora.DefaultConfig()
	m := &cfg.Modem
	if m.Baud == 0 {
		m.Baud = defaultBaud
	}
	if m.AppKey == "" {
		m.AppKey = def.AppKey
	}
	if m.LoraPort == 0 {
		m.LoraPort = def.Port
	}
	if m.Class == "" {
		m.Class = def.Class
	}
	if m.Retries == 0 {
		m.Retries = def.Retries
	}
	if m.CommandTimeoutMs == 0 {
		m.CommandTimeoutMs = int(def.CommandTimeout.Milliseconds())
	}
	if m.JoinTimeoutMs == 0 {
		m.JoinTimeoutMs = int(def.JoinTimeout.Milliseconds())
	}
	if m.MessageTimeoutMs == 0 {
		m.MessageTimeoutMs = int(def.MessageTimeout.Milliseconds())
	}

	if cfg.EEPROM.Address == 0 {
		cfg.EEPROM.Address = eeprom.DefaultAddress
	}

	// simulated days are short so a run finishes in seconds
	s := &cfg.Simulation
	if s.DispenseIntervalMs == 0 {
		s.DispenseIntervalMs = 1000
	}
	if s.DetectionWindowMs == 0 {
		s.DetectionWindowMs = 500
	}
	if s.Pills == 0 {
		s.Pills = pilldispenser.Days
	}
	if s.StartPosition == 0 {
		s.StartPosition = 1000
	}
}
