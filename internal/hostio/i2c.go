package hostio

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// I2CBus adapts a periph.io bus to the tinygo drivers.I2C interface so the firmware
// EEPROM code can run against a chip wired to a Linux host
type I2CBus struct {
	bus    i2c.Bus
	closer func() error
}

var _ drivers.I2C = (*I2CBus)(nil)

// NewI2CBus wraps an already opened bus
func NewI2CBus(bus i2c.Bus) *I2CBus {
	return &I2CBus{bus: bus}
}

// OpenI2C initializes the host drivers and opens the named bus. An empty name opens the
// first available bus.
func OpenI2C(name string) (*I2CBus, error) {
	_, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("error initializing host: %w", err)
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("error opening i2c bus %q: %w", name, err)
	}

	return &I2CBus{bus: bus, closer: bus.Close}, nil
}

func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	return b.bus.Tx(addr, w, r)
}

func (b *I2CBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.bus.Tx(uint16(addr), []byte{reg}, buf)
}

func (b *I2CBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return b.bus.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}

func (b *I2CBus) String() string {
	return b.bus.String()
}

// Close releases the bus when it was opened by OpenI2C
func (b *I2CBus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
