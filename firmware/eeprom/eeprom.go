package eeprom

import (
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

const (
	// DefaultAddress is the 7-bit bus address of the AT24C256
	DefaultAddress = 0x50

	defaultWriteDelay = 5 * time.Millisecond
)

// ErrBus is returned when a bus transaction did not complete
var ErrBus = errors.New("eeprom bus failure")

// Config has the bus-level settings of the EEPROM chip
type Config struct {
	Address uint16
	// WriteDelay is the settle time after every write transaction
	WriteDelay time.Duration
	// Sleep is used for the write settle delay. Defaults to time.Sleep
	Sleep func(time.Duration)
}

// EEPROM reads and writes a 16-bit addressed I2C EEPROM. Every call is a single blocking
// bus transaction and must only be used from the main loop.
type EEPROM struct {
	bus        drivers.I2C
	address    uint16
	writeDelay time.Duration
	sleep      func(time.Duration)
}

// New creates an EEPROM on the bus. Zero values in cfg use the defaults
func New(bus drivers.I2C, cfg Config) *EEPROM {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.WriteDelay == 0 {
		cfg.WriteDelay = defaultWriteDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	return &EEPROM{
		bus:        bus,
		address:    cfg.Address,
		writeDelay: cfg.WriteDelay,
		sleep:      cfg.Sleep,
	}
}

// Write writes data at addr as one transaction: the big-endian address followed by the payload
func (e *EEPROM) Write(addr uint16, data []byte) error {
	buf := make([]byte, 2+len(data))
	buf[0] = byte(addr >> 8)
	buf[1] = byte(addr)
	copy(buf[2:], data)

	err := e.bus.Tx(e.address, buf, nil)
	e.sleep(e.writeDelay)
	if err != nil {
		return fmt.Errorf("%w: write %d bytes at 0x%04x: %w", ErrBus, len(data), addr, err)
	}
	return nil
}

// Read fills buf starting at addr. The address is written without a stop condition and
// followed by the read.
func (e *EEPROM) Read(addr uint16, buf []byte) error {
	err := e.bus.Tx(e.address, []byte{byte(addr >> 8), byte(addr)}, buf)
	if err != nil {
		return fmt.Errorf("%w: read %d bytes at 0x%04x: %w", ErrBus, len(buf), addr, err)
	}
	return nil
}

// ReadUint8 reads a single byte at addr
func (e *EEPROM) ReadUint8(addr uint16) (uint8, error) {
	var buf [1]byte
	err := e.Read(addr, buf[:])
	return buf[0], err
}

// WriteUint8 writes a single byte at addr
func (e *EEPROM) WriteUint8(addr uint16, v uint8) error {
	return e.Write(addr, []byte{v})
}

// ReadUint16 reads a big-endian uint16 at addr
func (e *EEPROM) ReadUint16(addr uint16) (uint16, error) {
	var buf [2]byte
	err := e.Read(addr, buf[:])
	return uint16(buf[0])<<8 | uint16(buf[1]), err
}

// WriteUint16 writes v big-endian at addr
func (e *EEPROM) WriteUint16(addr uint16, v uint16) error {
	return e.Write(addr, []byte{byte(v >> 8), byte(v)})
}
