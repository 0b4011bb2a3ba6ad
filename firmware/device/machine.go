package device

import "github.com/calvinmclean/pilldispenser"

// Effect is the action the main loop runs after a transition
type Effect int

const (
	EffectNone Effect = iota
	EffectCalibrate
	EffectStartDispensing
	EffectReportStatus
	EffectDumpLog
	EffectEraseLog
)

func (e Effect) String() string {
	switch e {
	case EffectCalibrate:
		return "Calibrate"
	case EffectStartDispensing:
		return "StartDispensing"
	case EffectReportStatus:
		return "ReportStatus"
	case EffectDumpLog:
		return "DumpLog"
	case EffectEraseLog:
		return "EraseLog"
	default:
		return "None"
	}
}

// Transition is the state machine: it returns the next phase and the effect to run for
// an event received in phase p. It has no side effects.
func Transition(p pilldispenser.Phase, ev pilldispenser.Event) (pilldispenser.Phase, Effect) {
	switch ev {
	case pilldispenser.ButtonOnePressed:
		// re-calibration is always allowed
		return pilldispenser.Calibrating, EffectCalibrate
	case pilldispenser.ButtonTwoPressed:
		if p.Kind != pilldispenser.PhaseReadyToDispense {
			return p, EffectNone
		}
		return pilldispenser.Dispensing(p.Day), EffectStartDispensing
	case pilldispenser.StatusRequested:
		return p, EffectReportStatus
	case pilldispenser.LogDumpRequested:
		return p, EffectDumpLog
	case pilldispenser.LogEraseRequested:
		return p, EffectEraseLog
	default:
		// pill drops only count inside a detection window
		return p, EffectNone
	}
}
