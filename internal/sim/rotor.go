package sim

import "sync"

// RotorConfig describes the simulated wheel
type RotorConfig struct {
	StepsPerRevolution int
	// HomeWidth is how many steps the optical fork reads low for
	HomeWidth int
	// DispensePoint is the position of the dispense hole relative to the home edge
	DispensePoint int
	// Compartments divides the wheel; compartment 0 is the calibration hole and never holds a pill
	Compartments int
	// StartPosition is where the wheel is when powered on
	StartPosition int
}

// DefaultRotorConfig matches the firmware defaults of a 28BYJ-48 in half-step mode
func DefaultRotorConfig() RotorConfig {
	return RotorConfig{
		StepsPerRevolution: 4096,
		HomeWidth:          40,
		DispensePoint:      130,
		Compartments:       8,
		StartPosition:      1000,
	}
}

// Rotor simulates the stepper, the optical fork and the piezo sensor. A pill drops when
// a loaded compartment lines up with the dispense hole.
type Rotor struct {
	mu       sync.Mutex
	cfg      RotorConfig
	position int
	pills    []bool

	// OnDrop is called, from the stepping goroutine, for every pill that falls
	OnDrop func()

	Forward  int
	Backward int
	Dropped  int
}

// NewRotor creates a wheel at cfg.StartPosition with empty compartments
func NewRotor(cfg RotorConfig) *Rotor {
	return &Rotor{
		cfg:      cfg,
		position: cfg.StartPosition,
		pills:    make([]bool, cfg.Compartments),
	}
}

// LoadPills fills compartments 1 through n
func (r *Rotor) LoadPills(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 1; i < len(r.pills); i++ {
		r.pills[i] = i <= n
	}
}

// Pills counts the compartments still holding a pill
func (r *Rotor) Pills() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.pills {
		if p {
			n++
		}
	}
	return n
}

// Position returns the wheel angle in steps, in [0, StepsPerRevolution)
func (r *Rotor) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.angle()
}

// SetPosition moves the wheel without stepping, to simulate a reset mid-rotation
func (r *Rotor) SetPosition(pos int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.position = pos
}

func (r *Rotor) StepForward() {
	r.step(+1)
}

func (r *Rotor) StepBackward() {
	r.step(-1)
}

// Get reads the optical fork: low while the home slot is in the fork
func (r *Rotor) Get() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.angle() >= r.cfg.HomeWidth
}

func (r *Rotor) step(dir int) {
	r.mu.Lock()
	r.position += dir
	if dir > 0 {
		r.Forward++
	} else {
		r.Backward++
	}
	dropped := r.dropIfAligned()
	onDrop := r.OnDrop
	r.mu.Unlock()

	if dropped && onDrop != nil {
		onDrop()
	}
}

func (r *Rotor) dropIfAligned() bool {
	spacing := r.cfg.StepsPerRevolution / r.cfg.Compartments
	offset := r.angle() - r.cfg.DispensePoint
	if offset < 0 {
		offset += r.cfg.StepsPerRevolution
	}
	if offset%spacing != 0 {
		return false
	}

	c := offset / spacing
	if c == 0 || !r.pills[c] {
		return false
	}
	r.pills[c] = false
	r.Dropped++
	return true
}

func (r *Rotor) angle() int {
	rev := r.cfg.StepsPerRevolution
	return ((r.position % rev) + rev) % rev
}
