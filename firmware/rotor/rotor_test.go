package rotor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinmclean/pilldispenser/internal/sim"
)

func newTestRotor(t *testing.T) (*Rotor, *sim.Rotor) {
	t.Helper()
	wheel := sim.NewRotor(sim.DefaultRotorConfig())
	return New(wheel, wheel, DefaultConfig()), wheel
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name  string
		start int
	}{
		{"OutsideHome", 1000},
		{"InsideHome", 10},
		{"JustBeforeHome", 4095},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, wheel := newTestRotor(t)
			wheel.SetPosition(tt.start)

			steps, err := r.Calibrate()
			require.NoError(t, err)
			assert.Equal(t, uint16(4096), steps)
			assert.Equal(t, 130, wheel.Position(), "first compartment centered on the dispense hole")
			assert.Equal(t, 0, wheel.Backward)
		})
	}
}

func TestCalibrateNoEdge(t *testing.T) {
	wheel := sim.NewRotor(sim.RotorConfig{StepsPerRevolution: 4096, HomeWidth: 0, Compartments: 8})
	r := New(wheel, wheel, Config{MaxSteps: 100})

	_, err := r.Calibrate()
	assert.ErrorIs(t, err, ErrEdgeNotFound)
	assert.Equal(t, 100, wheel.Forward)
}

func TestRotateCompartment(t *testing.T) {
	r, wheel := newTestRotor(t)
	_, err := r.Calibrate()
	require.NoError(t, err)

	for day := 1; day <= 7; day++ {
		r.RotateCompartment(4096)
		assert.Equal(t, 130+day*512, wheel.Position())
	}
}

func TestRotateCompartmentDropsPills(t *testing.T) {
	r, wheel := newTestRotor(t)
	_, err := r.Calibrate()
	require.NoError(t, err)

	drops := 0
	wheel.OnDrop = func() { drops++ }
	wheel.LoadPills(7)

	for range 7 {
		before := drops
		r.RotateCompartment(4096)
		assert.Equal(t, before+1, drops)
	}
	assert.Equal(t, 0, wheel.Pills())
}

func TestRecoverPosition(t *testing.T) {
	tests := []struct {
		name     string
		lastDay  uint8
		resetAt  int
		expected int
	}{
		{"NoDaysDispensed", 0, 130, 130},
		{"ThreeDaysMidRotation", 3, 130 + 3*512 + 200, 130 + 3*512},
		{"SixDays", 6, 130 + 6*512, 130 + 6*512},
		{"ResetInsideHome", 2, 20, 130 + 2*512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, wheel := newTestRotor(t)
			wheel.SetPosition(tt.resetAt)

			require.NoError(t, r.RecoverPosition(4096, tt.lastDay))
			assert.Equal(t, tt.expected, wheel.Position())
			assert.NotZero(t, wheel.Backward, "home is re-acquired in reverse")
		})
	}
}

func TestMove(t *testing.T) {
	r, wheel := newTestRotor(t)

	r.Move(5)
	r.Move(-2)
	r.Move(0)
	assert.Equal(t, 5, wheel.Forward)
	assert.Equal(t, 2, wheel.Backward)
	assert.Equal(t, 1003, wheel.Position())
}

// releasingWheel counts coil releases on top of the simulated wheel
type releasingWheel struct {
	*sim.Rotor
	releases int
}

func (w *releasingWheel) Release() { w.releases++ }

func TestReleaseAfterMove(t *testing.T) {
	wheel := &releasingWheel{Rotor: sim.NewRotor(sim.DefaultRotorConfig())}
	r := New(wheel, wheel, DefaultConfig())

	steps, err := r.Calibrate()
	require.NoError(t, err)
	assert.Equal(t, 1, wheel.releases)

	r.RotateCompartment(steps)
	assert.Equal(t, 2, wheel.releases)

	require.NoError(t, r.RecoverPosition(steps, 1))
	assert.Equal(t, 3, wheel.releases)
}

func TestReleaseAfterFailedCalibration(t *testing.T) {
	wheel := &releasingWheel{Rotor: sim.NewRotor(sim.RotorConfig{StepsPerRevolution: 4096, Compartments: 8})}
	r := New(wheel, wheel, Config{MaxSteps: 100})

	_, err := r.Calibrate()
	require.ErrorIs(t, err, ErrEdgeNotFound)
	assert.Equal(t, 1, wheel.releases, "coils are off even when no edge was found")
}

func TestNewDefaults(t *testing.T) {
	wheel := sim.NewRotor(sim.DefaultRotorConfig())
	r := New(wheel, wheel, Config{})

	def := DefaultConfig()
	assert.Equal(t, def.Compartments, r.cfg.Compartments)
	assert.Equal(t, def.MaxSteps, r.cfg.MaxSteps)
	assert.Zero(t, r.cfg.CenterOffset)
	assert.Zero(t, r.cfg.RecoveryOffset)

	_, err := r.Calibrate()
	require.NoError(t, err)
	assert.Equal(t, 0, wheel.Position(), "no centering offset applied")
}
