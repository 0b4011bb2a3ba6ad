package rotor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/calvinmclean/pilldispenser"
)

// ErrEdgeNotFound is returned when the home sensor never changed within the step budget
var ErrEdgeNotFound = errors.New("home edge not found")

// Motor moves the rotor one step at a time. Stepper implements it.
type Motor interface {
	StepForward()
	StepBackward()
}

// Releaser is a Motor that can turn its coils off between moves
type Releaser interface {
	Release()
}

// Sensor is the optical fork used as the home reference. It reads low while the slot
// in the rotor is in the fork.
type Sensor interface {
	Get() bool
}

// Config has the positioning values of the rotor. Offsets depend on where the optical
// fork is mounted relative to the dispense hole.
type Config struct {
	// CenterOffset is moved forward after calibration to center the first compartment
	CenterOffset int32
	// RecoveryOffset is moved after the reverse home edge is found, before advancing
	// to the current compartment. Positive moves forward.
	RecoveryOffset int32
	// Compartments is the number of equal sections of one revolution
	Compartments uint16
	// MaxSteps bounds every edge search
	MaxSteps int

	Logger *slog.Logger
}

// DefaultConfig is calibrated for the 28BYJ-48 in half-step mode with the fork 130 steps
// before the dispense hole
func DefaultConfig() Config {
	return Config{
		CenterOffset:   130,
		RecoveryOffset: 131,
		Compartments:   pilldispenser.Days + 1,
		MaxSteps:       3 * 4096,
	}
}

// Rotor positions the compartment wheel using the home sensor
type Rotor struct {
	motor  Motor
	sensor Sensor
	cfg    Config
	logger *slog.Logger
}

// New creates a Rotor. Zero Compartments and MaxSteps use DefaultConfig; the offsets
// are used as given.
func New(motor Motor, sensor Sensor, cfg Config) *Rotor {
	def := DefaultConfig()
	if cfg.Compartments == 0 {
		cfg.Compartments = def.Compartments
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Rotor{
		motor:  motor,
		sensor: sensor,
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Calibrate finds the home edge, counts the steps to the next one and centers the first
// compartment. It returns the measured steps per revolution.
func (r *Rotor) Calibrate() (uint16, error) {
	defer r.release()

	_, ok := r.seekEdge(false, true)
	if !ok {
		return 0, fmt.Errorf("error finding first edge: %w", ErrEdgeNotFound)
	}

	steps, ok := r.seekEdge(false, true)
	if !ok {
		return 0, fmt.Errorf("error finding second edge: %w", ErrEdgeNotFound)
	}

	r.Move(r.cfg.CenterOffset)

	r.logger.Debug("rotor calibrated", "steps_per_revolution", steps)
	return uint16(steps), nil
}

// CompartmentSteps is the distance between two compartments
func (r *Rotor) CompartmentSteps(stepsPerRevolution uint16) int32 {
	return int32(stepsPerRevolution / r.cfg.Compartments)
}

// RotateCompartment advances by one compartment
func (r *Rotor) RotateCompartment(stepsPerRevolution uint16) {
	defer r.release()
	r.Move(r.CompartmentSteps(stepsPerRevolution))
}

// RecoverPosition re-homes from the opposite direction and advances to the compartment
// that follows lastDay dispensed days
func (r *Rotor) RecoverPosition(stepsPerRevolution uint16, lastDay uint8) error {
	defer r.release()

	_, ok := r.seekEdge(true, false)
	if !ok {
		return ErrEdgeNotFound
	}

	r.Move(r.cfg.RecoveryOffset)
	r.Move(r.CompartmentSteps(stepsPerRevolution) * int32(lastDay))

	r.logger.Debug("rotor position recovered", "last_day", lastDay)
	return nil
}

func (r *Rotor) release() {
	if m, ok := r.motor.(Releaser); ok {
		m.Release()
	}
}

// Move moves the rotor by n steps, backwards when negative
func (r *Rotor) Move(n int32) {
	if n > 0 {
		for range n {
			r.motor.StepForward()
		}
	} else {
		for range -n {
			r.motor.StepBackward()
		}
	}
}

// seekEdge steps until the sensor changes level: a falling edge when falling is set,
// otherwise a rising edge. It returns the number of steps taken.
func (r *Rotor) seekEdge(reverse, falling bool) (int, bool) {
	prev := r.sensor.Get()
	for i := 1; i <= r.cfg.MaxSteps; i++ {
		if reverse {
			r.motor.StepBackward()
		} else {
			r.motor.StepForward()
		}

		cur := r.sensor.Get()
		if falling && prev && !cur {
			return i, true
		}
		if !falling && !prev && cur {
			return i, true
		}
		prev = cur
	}
	return 0, false
}
