package device

import (
	"github.com/calvinmclean/pilldispenser"
	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
)

// State is the in-memory copy of the persisted device state. The main loop owns the only
// instance; it is authoritative until overwritten.
type State struct {
	BootStatus         pilldispenser.BootStatus
	StepsPerRevolution uint16
	LastDay            uint8
	Calibrated         bool
}

// StateStore reads and writes the persisted scalars at their fixed addresses. Each
// accessor is a single bus transaction and there are no retries.
type StateStore struct {
	ee     *eeprom.EEPROM
	layout eeprom.Layout
}

// NewStateStore creates a StateStore using the addresses in layout
func NewStateStore(ee *eeprom.EEPROM, layout eeprom.Layout) *StateStore {
	return &StateStore{ee: ee, layout: layout}
}

// BootStatus reads the persisted boot status
func (s *StateStore) BootStatus() (pilldispenser.BootStatus, error) {
	b, err := s.ee.ReadUint8(s.layout.BootStatusAddr)
	if err != nil {
		return pilldispenser.BootStatusUnset, err
	}
	return pilldispenser.ParseBootStatus(b), nil
}

// SetBootStatus persists bs. It is written before the action that bs names begins.
func (s *StateStore) SetBootStatus(bs pilldispenser.BootStatus) error {
	return s.ee.WriteUint8(s.layout.BootStatusAddr, uint8(bs))
}

// StepsPerRevolution reads the calibration result, 0 when uncalibrated
func (s *StateStore) StepsPerRevolution() (uint16, error) {
	return s.ee.ReadUint16(s.layout.StepsAddr)
}

func (s *StateStore) SetStepsPerRevolution(n uint16) error {
	return s.ee.WriteUint16(s.layout.StepsAddr, n)
}

// LastDay reads the number of days already dispensed, 0 when none
func (s *StateStore) LastDay() (uint8, error) {
	return s.ee.ReadUint8(s.layout.LastDayAddr)
}

func (s *StateStore) SetLastDay(d uint8) error {
	return s.ee.WriteUint8(s.layout.LastDayAddr, d)
}

// Reset returns every persisted scalar to its unset value
func (s *StateStore) Reset() error {
	err := s.SetLastDay(0)
	if err != nil {
		return err
	}
	err = s.SetStepsPerRevolution(0)
	if err != nil {
		return err
	}
	return s.SetBootStatus(pilldispenser.BootStatusUnset)
}
