// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/pilldispenser/firmware/device"
	"github.com/calvinmclean/pilldispenser/firmware/lora"
)

// Config is the pillctl host configuration
type Config struct {
	Modem      ModemConfig      `yaml:"modem"`
	EEPROM     EEPROMConfig     `yaml:"eeprom"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ---- MODEM ----

type ModemConfig struct {
	// Port is a local serial device. URL is a websocket serial bridge. Only one is used.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	URL  string `yaml:"url"`

	AppKey   string `yaml:"app_key"`
	LoraPort uint8  `yaml:"lora_port"`
	Class    string `yaml:"class"`
	Retries  int    `yaml:"retries"`

	CommandTimeoutMs int `yaml:"command_timeout_ms"`
	JoinTimeoutMs    int `yaml:"join_timeout_ms"`
	MessageTimeoutMs int `yaml:"message_timeout_ms"`
}

// ---- EEPROM ----

type EEPROMConfig struct {
	// Image is a file holding a dump of the whole chip
	Image string `yaml:"image"`
	// I2CBus is a periph.io bus name, like "1" or "/dev/i2c-1"
	I2CBus  string `yaml:"i2c_bus"`
	Address uint16 `yaml:"address"`
}

// ---- SIMULATION ----

type SimulationConfig struct {
	DispenseIntervalMs int `yaml:"dispense_interval_ms"`
	DetectionWindowMs  int `yaml:"detection_window_ms"`
	Pills              int `yaml:"pills"`
	JoinFailures       int `yaml:"join_failures"`
	StartPosition      int `yaml:"start_position"`
}

// Load reads a YAML config file. It does not validate or apply defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("error parsing config %q: %w", path, err)
	}
	return &cfg, nil
}

// LoraConfig converts the modem section for the protocol engine
func (m ModemConfig) LoraConfig() lora.Config {
	return lora.Config{
		AppKey:         m.AppKey,
		Port:           m.LoraPort,
		Class:          m.Class,
		Retries:        m.Retries,
		CommandTimeout: ms(m.CommandTimeoutMs),
		JoinTimeout:    ms(m.JoinTimeoutMs),
		MessageTimeout: ms(m.MessageTimeoutMs),
	}
}

// Timing returns the device timing used by the simulation
func (s SimulationConfig) Timing() device.Timing {
	t := device.DefaultTiming()
	t.DispenseInterval = ms(s.DispenseIntervalMs)
	t.DetectionWindow = ms(s.DetectionWindowMs)
	return t
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
