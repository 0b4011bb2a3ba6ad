package rotor

import (
	"errors"
	"time"
)

const defaultStepDelay = 1 * time.Millisecond

type StepMode int

const (
	StepModeFull StepMode = iota
	StepModeHalf
)

// Pin is a digital output driving one coil. machine.Pin satisfies it.
type Pin interface {
	Set(bool)
}

// StepperConfig has the coil pins and pacing of the stepper
type StepperConfig struct {
	Pins      [4]Pin
	StepMode  StepMode
	StepDelay time.Duration
	// Sleep paces the steps. Defaults to time.Sleep
	Sleep func(time.Duration)
}

// Stepper plays the coil sequence back one step at a time. Its only state is the
// index into the sequence.
type Stepper struct {
	pins        [4]Pin
	stepMode    StepMode
	currentStep int
	stepDelay   time.Duration
	sleep       func(time.Duration)
}

func NewStepper(cfg StepperConfig) (*Stepper, error) {
	if cfg.StepMode != StepModeFull && cfg.StepMode != StepModeHalf {
		return nil, errors.New("invalid StepMode")
	}
	for _, p := range cfg.Pins {
		if p == nil {
			return nil, errors.New("missing coil pin")
		}
	}

	if cfg.StepDelay == 0 {
		cfg.StepDelay = defaultStepDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	return &Stepper{
		pins:        cfg.Pins,
		stepMode:    cfg.StepMode,
		stepDelay:   cfg.StepDelay,
		sleep:       cfg.Sleep,
		currentStep: 0,
	}, nil
}

var (
	// 8-step half-step halfStepSequence
	halfStepSequence = [8][4]bool{
		{true, false, false, false},
		{true, true, false, false},
		{false, true, false, false},
		{false, true, true, false},
		{false, false, true, false},
		{false, false, true, true},
		{false, false, false, true},
		{true, false, false, true},
	}

	// 4-step sequence
	fullStepSequence = [4][4]bool{
		{true, false, false, false},
		{false, true, false, false},
		{false, false, true, false},
		{false, false, false, true},
	}
)

func (s *Stepper) sequenceLen() int {
	if s.stepMode == StepModeHalf {
		return len(halfStepSequence)
	}
	return len(fullStepSequence)
}

func (s *Stepper) applyStep() {
	var sequence [4]bool
	switch s.stepMode {
	default:
		fallthrough
	case StepModeFull:
		sequence = fullStepSequence[s.currentStep]
	case StepModeHalf:
		sequence = halfStepSequence[s.currentStep]
	}

	for i := range 4 {
		s.pins[i].Set(sequence[i])
	}
}

func (s *Stepper) StepForward() {
	s.currentStep = (s.currentStep + 1) % s.sequenceLen()
	s.applyStep()
	s.sleep(s.stepDelay)
}

func (s *Stepper) StepBackward() {
	n := s.sequenceLen()
	s.currentStep = (s.currentStep - 1 + n) % n
	s.applyStep()
	s.sleep(s.stepDelay)
}

// Release turns all coils off
func (s *Stepper) Release() {
	for _, p := range s.pins {
		p.Set(false)
	}
}
