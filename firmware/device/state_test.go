package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinmclean/pilldispenser"
	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
	"github.com/calvinmclean/pilldispenser/internal/sim"
)

func newTestStore(t *testing.T) (*StateStore, *sim.EEPROM) {
	t.Helper()
	chip := sim.NewEEPROM(sim.DefaultEEPROMSize, eeprom.DefaultAddress)
	ee := eeprom.New(chip, eeprom.Config{Sleep: func(time.Duration) {}})
	return NewStateStore(ee, eeprom.DefaultLayout()), chip
}

func TestStateStoreFreshChip(t *testing.T) {
	s, _ := newTestStore(t)

	bs, err := s.BootStatus()
	require.NoError(t, err)
	assert.Equal(t, pilldispenser.BootStatusUnset, bs)
}

func TestStateStoreAddresses(t *testing.T) {
	s, chip := newTestStore(t)

	require.NoError(t, s.SetLastDay(5))
	require.NoError(t, s.SetStepsPerRevolution(4096))
	require.NoError(t, s.SetBootStatus(pilldispenser.BootStatusDispensing))

	mem := chip.Bytes()
	assert.Equal(t, byte(5), mem[2048])
	assert.Equal(t, []byte{0x10, 0x00}, mem[2049:2051])
	assert.Equal(t, byte(3), mem[2056])

	day, err := s.LastDay()
	require.NoError(t, err)
	assert.Equal(t, uint8(5), day)

	steps, err := s.StepsPerRevolution()
	require.NoError(t, err)
	assert.Equal(t, uint16(4096), steps)

	bs, err := s.BootStatus()
	require.NoError(t, err)
	assert.Equal(t, pilldispenser.BootStatusDispensing, bs)
}

func TestStateStoreReset(t *testing.T) {
	s, chip := newTestStore(t)
	require.NoError(t, s.SetLastDay(7))
	require.NoError(t, s.SetStepsPerRevolution(4100))
	require.NoError(t, s.SetBootStatus(pilldispenser.BootStatusWaiting))

	require.NoError(t, s.Reset())

	mem := chip.Bytes()
	assert.Equal(t, byte(0), mem[2048])
	assert.Equal(t, []byte{0, 0}, mem[2049:2051])
	assert.Equal(t, byte(0xFF), mem[2056])
}

func TestStateStoreBusFailure(t *testing.T) {
	s, chip := newTestStore(t)
	chip.WriteFault = func(uint16) error { return sim.ErrNACK }

	err := s.SetBootStatus(pilldispenser.BootStatusCalibrating)
	assert.ErrorIs(t, err, eeprom.ErrBus)
}
