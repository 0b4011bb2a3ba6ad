package eeprom

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"log/slog"
)

var (
	// ErrInvalidMessage is returned for messages that cannot be stored as a record
	ErrInvalidMessage = errors.New("invalid log message")
	// ErrCorruptRecord marks a record whose CRC does not validate
	ErrCorruptRecord = errors.New("corrupt log record")
)

// Record is a log message read back from a slot
type Record struct {
	Addr    uint16
	Message string
	// Valid is false when the CRC check failed. Corrupt records are still returned so
	// they can be reported.
	Valid bool
}

// Err returns ErrCorruptRecord for a record that failed the CRC check
func (r Record) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w at 0x%04x", ErrCorruptRecord, r.Addr)
}

// Log is an append-only journal of text messages in fixed-size slots. A slot is empty
// when its first byte is zero. There is no persisted write cursor: every append scans
// for the first empty slot, and a full region is erased completely before writing again.
type Log struct {
	ee     *EEPROM
	layout Layout
	logger *slog.Logger
}

// NewLog creates a Log in the log region of layout
func NewLog(ee *EEPROM, layout Layout, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{ee: ee, layout: layout, logger: logger}
}

// Append writes msg to the first empty slot, erasing the whole region first when no
// slot is free
func (l *Log) Append(msg string) error {
	if len(msg) == 0 || len(msg) > MaxMessageLen || bytes.IndexByte([]byte(msg), 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidMessage, msg)
	}

	addr, found, err := l.firstEmpty()
	if err != nil {
		return err
	}
	if !found {
		l.logger.Info("log full, erasing", "slots", l.layout.Slots)
		err = l.EraseAll()
		if err != nil {
			return err
		}
		addr = l.layout.LogStart
	}

	err = l.ee.Write(addr, encodeRecord(msg))
	if err != nil {
		return err
	}

	l.logger.Debug("log record written", "addr", addr, "msg", msg)
	return nil
}

// Records iterates the occupied slots in address order. Empty slots and slots without a
// terminator are skipped. A read failure ends the iteration.
func (l *Log) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		buf := make([]byte, SlotSize)
		for i := range l.layout.Slots {
			addr := l.layout.SlotAddr(i)
			err := l.ee.Read(addr, buf)
			if err != nil {
				l.logger.Warn("log read stopped", "addr", addr, "err", err)
				return
			}

			r, ok := decodeRecord(addr, buf)
			if !ok {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Len counts the records currently in the log
func (l *Log) Len() int {
	n := 0
	for range l.Records() {
		n++
	}
	return n
}

// EraseAll marks every slot empty by zeroing its first byte
func (l *Log) EraseAll() error {
	for i := range l.layout.Slots {
		err := l.ee.WriteUint8(l.layout.SlotAddr(i), 0)
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Log) firstEmpty() (uint16, bool, error) {
	for i := range l.layout.Slots {
		addr := l.layout.SlotAddr(i)
		lead, err := l.ee.ReadUint8(addr)
		if err != nil {
			return 0, false, err
		}
		if lead == 0 {
			return addr, true, nil
		}
	}
	return 0, false, nil
}

// encodeRecord builds a full slot: message, terminator, CRC16 over both, zero padding
func encodeRecord(msg string) []byte {
	buf := make([]byte, 0, SlotSize)
	buf = append(buf, msg...)
	buf = append(buf, 0)
	buf = AppendCRC(buf)
	return buf[:SlotSize]
}

func decodeRecord(addr uint16, slot []byte) (Record, bool) {
	if slot[0] == 0 {
		return Record{}, false
	}

	n := bytes.IndexByte(slot[:MaxMessageLen+1], 0)
	if n < 0 {
		return Record{}, false
	}

	return Record{
		Addr:    addr,
		Message: string(slot[:n]),
		Valid:   ValidateCRC(slot[:n+3]),
	}, true
}
