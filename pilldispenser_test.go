package pilldispenser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBootStatus(t *testing.T) {
	tests := []struct {
		in       byte
		expected BootStatus
	}{
		{0, BootStatusInitial},
		{1, BootStatusCalibrating},
		{2, BootStatusWaiting},
		{3, BootStatusDispensing},
		{4, BootStatusUnset},
		{0x7F, BootStatusUnset},
		{0xFF, BootStatusUnset},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseBootStatus(tt.in))
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Calibrating", Calibrating.String())
	assert.Equal(t, "ReadyToDispense(2)", ReadyToDispense(2).String())
	assert.Equal(t, "Dispensing(6)", Dispensing(6).String())
	assert.Equal(t, "Idle", PhaseKind(42).String())
}

func TestPhaseBootStatus(t *testing.T) {
	assert.Equal(t, BootStatusInitial, PhaseIdle.BootStatus())
	assert.Equal(t, BootStatusCalibrating, PhaseCalibrating.BootStatus())
	assert.Equal(t, BootStatusWaiting, PhaseReadyToDispense.BootStatus())
	assert.Equal(t, BootStatusDispensing, PhaseDispensing.BootStatus())
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "None", EventNone.String())
	assert.Equal(t, "PillDropped", PillDropped.String())
	assert.Equal(t, "LogEraseRequested", LogEraseRequested.String())
	assert.Equal(t, "Unset", BootStatus(9).String())
}
