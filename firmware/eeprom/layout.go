package eeprom

// SlotSize is the size of one log record slot. It matches the AT24C256 page size so a
// record is always written by a single page write.
const SlotSize = 64

// MaxMessageLen leaves room for the terminator and the two CRC bytes
const MaxMessageLen = SlotSize - 3

// Layout is the EEPROM address map
type Layout struct {
	LogStart uint16
	Slots    uint16

	LastDayAddr    uint16
	StepsAddr      uint16
	BootStatusAddr uint16
}

// DefaultLayout is the map used by the firmware: 32 log slots followed by the device state fields
func DefaultLayout() Layout {
	const slots = 32
	logEnd := uint16(slots * SlotSize)
	return Layout{
		LogStart:       0,
		Slots:          slots,
		LastDayAddr:    logEnd,
		StepsAddr:      logEnd + 1,
		BootStatusAddr: logEnd + 8,
	}
}

// LogEnd is the first address after the log region
func (l Layout) LogEnd() uint16 {
	return l.LogStart + l.Slots*SlotSize
}

// SlotAddr returns the address of slot i
func (l Layout) SlotAddr(i uint16) uint16 {
	return l.LogStart + i*SlotSize
}
