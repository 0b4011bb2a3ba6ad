package rotor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePin struct {
	level bool
}

func (p *fakePin) Set(v bool) {
	p.level = v
}

func newTestStepper(t *testing.T, mode StepMode) (*Stepper, [4]*fakePin, *[]time.Duration) {
	t.Helper()
	pins := [4]*fakePin{{}, {}, {}, {}}
	var slept []time.Duration
	s, err := NewStepper(StepperConfig{
		Pins:     [4]Pin{pins[0], pins[1], pins[2], pins[3]},
		StepMode: mode,
		Sleep:    func(d time.Duration) { slept = append(slept, d) },
	})
	require.NoError(t, err)
	return s, pins, &slept
}

func levels(pins [4]*fakePin) [4]bool {
	return [4]bool{pins[0].level, pins[1].level, pins[2].level, pins[3].level}
}

func TestNewStepperInvalid(t *testing.T) {
	_, err := NewStepper(StepperConfig{StepMode: StepMode(5)})
	assert.Error(t, err)

	_, err = NewStepper(StepperConfig{StepMode: StepModeHalf})
	assert.Error(t, err, "pins are required")
}

func TestHalfStepSequence(t *testing.T) {
	s, pins, slept := newTestStepper(t, StepModeHalf)

	for i := 1; i <= 8; i++ {
		s.StepForward()
		assert.Equal(t, halfStepSequence[i%8], levels(pins), "step %d", i)
	}
	assert.Len(t, *slept, 8)
	assert.Equal(t, defaultStepDelay, (*slept)[0])

	s.StepBackward()
	assert.Equal(t, halfStepSequence[7], levels(pins))
	s.StepBackward()
	assert.Equal(t, halfStepSequence[6], levels(pins))
}

func TestFullStepSequence(t *testing.T) {
	s, pins, _ := newTestStepper(t, StepModeFull)

	s.StepBackward()
	assert.Equal(t, fullStepSequence[3], levels(pins))
	s.StepForward()
	assert.Equal(t, fullStepSequence[0], levels(pins))
}

func TestRelease(t *testing.T) {
	s, pins, _ := newTestStepper(t, StepModeHalf)
	s.StepForward()
	s.Release()
	assert.Equal(t, [4]bool{}, levels(pins))
}
