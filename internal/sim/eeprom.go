package sim

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"tinygo.org/x/drivers"
)

const (
	// DefaultEEPROMSize is the capacity of an AT24C256
	DefaultEEPROMSize = 32 * 1024

	pageSize = 64
)

// ErrNACK is returned when a transaction targets another bus address or is malformed
var ErrNACK = errors.New("i2c: no acknowledge")

// EEPROM emulates a 16-bit addressed I2C EEPROM with page-wrapping writes. A new chip
// reads 0xFF everywhere, like an erased part.
type EEPROM struct {
	mu      sync.Mutex
	mem     []byte
	address uint16

	// ReadFault and WriteFault are consulted before each transaction and can inject bus errors
	ReadFault  func(addr uint16) error
	WriteFault func(addr uint16) error

	Reads  int
	Writes int
}

var _ drivers.I2C = (*EEPROM)(nil)

// NewEEPROM creates an erased chip of size bytes at bus address busAddr
func NewEEPROM(size int, busAddr uint16) *EEPROM {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &EEPROM{mem: mem, address: busAddr}
}

// LoadEEPROM restores a chip from an image file. A missing file gives an erased chip.
func LoadEEPROM(path string, size int, busAddr uint16) (*EEPROM, error) {
	e := NewEEPROM(size, busAddr)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading eeprom image: %w", err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("eeprom image %s is %d bytes, expected %d", path, len(data), size)
	}

	copy(e.mem, data)
	return e, nil
}

// Save writes the chip contents to an image file
func (e *EEPROM) Save(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := os.WriteFile(path, e.mem, 0o644)
	if err != nil {
		return fmt.Errorf("error writing eeprom image: %w", err)
	}
	return nil
}

// Bytes returns a copy of the chip contents
func (e *EEPROM) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]byte(nil), e.mem...)
}

// Poke writes directly into memory without a bus transaction
func (e *EEPROM) Poke(addr uint16, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.mem[addr:], data)
}

// Tx implements drivers.I2C. A transaction with r == nil is a write of w[2:] at the
// address in w[:2]; otherwise it is a random read of len(r) bytes.
func (e *EEPROM) Tx(addr uint16, w, r []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if addr != e.address || len(w) < 2 {
		return ErrNACK
	}
	memAddr := uint16(w[0])<<8 | uint16(w[1])

	if r == nil {
		e.Writes++
		if e.WriteFault != nil {
			if err := e.WriteFault(memAddr); err != nil {
				return err
			}
		}
		e.write(memAddr, w[2:])
		return nil
	}

	if len(w) != 2 {
		return ErrNACK
	}
	e.Reads++
	if e.ReadFault != nil {
		if err := e.ReadFault(memAddr); err != nil {
			return err
		}
	}
	for i := range r {
		r[i] = e.mem[(int(memAddr)+i)%len(e.mem)]
	}
	return nil
}

// ReadRegister implements drivers.I2C with one-byte register addressing
func (e *EEPROM) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return e.Tx(uint16(addr), []byte{0, reg}, buf)
}

// WriteRegister implements drivers.I2C with one-byte register addressing
func (e *EEPROM) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return e.Tx(uint16(addr), append([]byte{0, reg}, buf...), nil)
}

// write stores data, wrapping inside the page like the real part does
func (e *EEPROM) write(addr uint16, data []byte) {
	page := int(addr) &^ (pageSize - 1)
	offset := int(addr) & (pageSize - 1)
	for _, b := range data {
		e.mem[(page+offset)%len(e.mem)] = b
		offset = (offset + 1) % pageSize
	}
}
