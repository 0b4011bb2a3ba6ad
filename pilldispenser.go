package pilldispenser

import "strconv"

// Days is the number of pill compartments dispensed in one run. The rotor has one
// more compartment than this, which is the empty calibration slot.
const Days = 7

// BootStatus is the persisted phase marker written before the action it names begins
type BootStatus uint8

const (
	BootStatusInitial     BootStatus = 0
	BootStatusCalibrating BootStatus = 1
	BootStatusWaiting     BootStatus = 2
	BootStatusDispensing  BootStatus = 3

	// BootStatusUnset is what an erased EEPROM cell reads as
	BootStatusUnset BootStatus = 0xFF
)

// ParseBootStatus maps a raw EEPROM byte to a BootStatus. Unknown values are Unset.
func ParseBootStatus(b byte) BootStatus {
	switch bs := BootStatus(b); bs {
	case BootStatusInitial, BootStatusCalibrating, BootStatusWaiting, BootStatusDispensing:
		return bs
	default:
		return BootStatusUnset
	}
}

func (bs BootStatus) String() string {
	switch bs {
	case BootStatusInitial:
		return "Initial"
	case BootStatusCalibrating:
		return "Calibrating"
	case BootStatusWaiting:
		return "Waiting"
	case BootStatusDispensing:
		return "Dispensing"
	default:
		fallthrough
	case BootStatusUnset:
		return "Unset"
	}
}

// PhaseKind is the state of the operational state machine
type PhaseKind int

const (
	PhaseIdle PhaseKind = iota
	PhaseCalibrating
	PhaseReadyToDispense
	PhaseDispensing
)

func (pk PhaseKind) String() string {
	switch pk {
	case PhaseCalibrating:
		return "Calibrating"
	case PhaseReadyToDispense:
		return "ReadyToDispense"
	case PhaseDispensing:
		return "Dispensing"
	default:
		fallthrough
	case PhaseIdle:
		return "Idle"
	}
}

// BootStatus returns the marker that is persisted when entering this kind of phase
func (pk PhaseKind) BootStatus() BootStatus {
	switch pk {
	case PhaseCalibrating:
		return BootStatusCalibrating
	case PhaseReadyToDispense:
		return BootStatusWaiting
	case PhaseDispensing:
		return BootStatusDispensing
	default:
		return BootStatusInitial
	}
}

// Phase is a PhaseKind plus the day it refers to. Day is the next day to dispense and
// is only meaningful for ReadyToDispense (the day a start will resume from) and Dispensing.
type Phase struct {
	Kind PhaseKind
	Day  uint8
}

var (
	Idle        = Phase{Kind: PhaseIdle}
	Calibrating = Phase{Kind: PhaseCalibrating}
)

// ReadyToDispense returns the phase waiting for a start that will resume at day
func ReadyToDispense(day uint8) Phase {
	return Phase{Kind: PhaseReadyToDispense, Day: day}
}

// Dispensing returns the phase that dispenses day next
func Dispensing(day uint8) Phase {
	return Phase{Kind: PhaseDispensing, Day: day}
}

func (p Phase) String() string {
	switch p.Kind {
	case PhaseReadyToDispense, PhaseDispensing:
		return p.Kind.String() + "(" + strconv.Itoa(int(p.Day)) + ")"
	default:
		return p.Kind.String()
	}
}

// Event is produced by interrupt handlers and the serial console and consumed only
// by the main loop
type Event uint8

const (
	EventNone Event = iota
	ButtonOnePressed
	ButtonTwoPressed
	PillDropped

	// console-only requests, they never change the phase
	StatusRequested
	LogDumpRequested
	LogEraseRequested
)

func (e Event) String() string {
	switch e {
	case ButtonOnePressed:
		return "ButtonOnePressed"
	case ButtonTwoPressed:
		return "ButtonTwoPressed"
	case PillDropped:
		return "PillDropped"
	case StatusRequested:
		return "StatusRequested"
	case LogDumpRequested:
		return "LogDumpRequested"
	case LogEraseRequested:
		return "LogEraseRequested"
	default:
		return "None"
	}
}
