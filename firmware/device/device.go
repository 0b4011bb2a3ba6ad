package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvinmclean/pilldispenser"
	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
)

// Positioner drives the compartment wheel. *rotor.Rotor implements it.
type Positioner interface {
	Calibrate() (uint16, error)
	RotateCompartment(stepsPerRevolution uint16)
	RecoverPosition(stepsPerRevolution uint16, lastDay uint8) error
}

// Radio sends status messages. Sending is skipped while not joined.
type Radio interface {
	Joined() bool
	Send(msg string) error
}

// Output is a digital output such as the status LED. machine.Pin satisfies it.
type Output interface {
	Set(bool)
}

// Hardware is everything the main loop talks to
type Hardware struct {
	EEPROM *eeprom.EEPROM
	Rotor  Positioner
	Queue  *Queue

	// Radio and LED are optional
	Radio Radio
	LED   Output
}

// Device runs the pill dispenser. It owns the persisted state and is only used from the
// main loop.
type Device struct {
	cfg    Config
	logger *slog.Logger

	store *StateStore
	log   *eeprom.Log
	rotor Positioner
	radio Radio
	led   Output
	queue *Queue

	state   State
	phase   pilldispenser.Phase
	pending []pilldispenser.Event

	bootTime  time.Time
	ledOn     bool
	lastBlink time.Time
}

// New creates a Device on the provided hardware
func New(hw Hardware, cfg Config) (*Device, error) {
	if hw.EEPROM == nil {
		return nil, errors.New("error creating device: missing EEPROM")
	}
	if hw.Rotor == nil {
		return nil, errors.New("error creating device: missing rotor")
	}
	if hw.Queue == nil {
		return nil, errors.New("error creating device: missing event queue")
	}
	cfg.setDefaults()

	return &Device{
		cfg:      cfg,
		logger:   cfg.Logger,
		store:    NewStateStore(hw.EEPROM, cfg.Layout),
		log:      eeprom.NewLog(hw.EEPROM, cfg.Layout, cfg.Logger),
		rotor:    hw.Rotor,
		radio:    hw.Radio,
		led:      hw.LED,
		queue:    hw.Queue,
		state:    State{BootStatus: pilldispenser.BootStatusUnset},
		phase:    pilldispenser.Idle,
		bootTime: cfg.Clock.Now(),
	}, nil
}

// Phase returns the current phase
func (d *Device) Phase() pilldispenser.Phase {
	return d.phase
}

// State returns a copy of the cached device state
func (d *Device) State() State {
	return d.state
}

// Log returns the EEPROM journal
func (d *Device) Log() *eeprom.Log {
	return d.log
}

// Submit queues an event from a source that is not debounced, like the serial console
func (d *Device) Submit(ev pilldispenser.Event) bool {
	return d.queue.Push(ev)
}

// Run boots the device and then runs the main loop until ctx is done. poll is called
// after every iteration, for example to read console commands.
func (d *Device) Run(ctx context.Context, poll func()) {
	d.Boot()
	for ctx.Err() == nil {
		d.Step()
		if poll != nil {
			poll()
		}
	}
}

// Boot rebuilds the phase from the EEPROM and enters it
func (d *Device) Boot() {
	p := d.Recover()
	d.logger.Info("booted", "phase", p.String(), "boot_status", d.state.BootStatus.String())
	d.enter(p)
}

// Recover inspects the persisted boot status and returns the phase to resume in. A
// reset during dispensing re-homes the rotor to the compartment of the last dispensed day.
func (d *Device) Recover() pilldispenser.Phase {
	bs, err := d.store.BootStatus()
	if err != nil {
		d.logger.Error("error reading boot status, starting idle", "err", err)
		return pilldispenser.Idle
	}
	d.state.BootStatus = bs

	switch bs {
	case pilldispenser.BootStatusCalibrating:
		d.journal("Recovered during calibration")

		steps, err := d.store.StepsPerRevolution()
		if err != nil || steps == 0 {
			return pilldispenser.Idle
		}
		d.state.StepsPerRevolution = steps
		d.state.Calibrated = true
		return pilldispenser.ReadyToDispense(0)

	case pilldispenser.BootStatusWaiting:
		steps, err := d.store.StepsPerRevolution()
		if err != nil {
			d.logger.Error("error restoring calibration", "err", err)
			return pilldispenser.Idle
		}
		d.state.StepsPerRevolution = steps
		d.state.Calibrated = true
		return pilldispenser.ReadyToDispense(0)

	case pilldispenser.BootStatusDispensing:
		return d.recoverDispensing()

	default:
		return pilldispenser.Idle
	}
}

func (d *Device) recoverDispensing() pilldispenser.Phase {
	steps, err := d.store.StepsPerRevolution()
	if err != nil || steps == 0 {
		d.logger.Error("no calibration to resume dispensing", "steps", steps, "err", err)
		return pilldispenser.Idle
	}
	lastDay, err := d.store.LastDay()
	if err != nil {
		d.logger.Error("error restoring last day", "err", err)
		return pilldispenser.Idle
	}
	lastDay = min(lastDay, pilldispenser.Days)

	d.state.StepsPerRevolution = steps
	d.state.LastDay = lastDay
	d.state.Calibrated = true

	err = d.rotor.RecoverPosition(steps, lastDay)
	if err != nil {
		d.logger.Error("error recovering rotor position", "err", err)
		d.state.Calibrated = false
		d.journal("Rotor recovery failed")
		return pilldispenser.Idle
	}
	d.cfg.Clock.Sleep(d.cfg.Timing.RecoverySettle)

	msg := fmt.Sprintf("Recovered during dispensing, day %d", lastDay)
	d.journal(msg)
	d.notify(msg)
	return pilldispenser.Dispensing(lastDay)
}

// Step runs one iteration of the main loop: queued events are applied, then a
// dispensing day runs if one is due
func (d *Device) Step() {
	events := d.queue.Drain(d.pending)
	d.pending = nil

	for _, ev := range events {
		d.handle(ev)
	}

	if d.phase.Kind == pilldispenser.PhaseDispensing {
		d.dispenseDay()
		return
	}

	d.blink()
	d.cfg.Clock.Sleep(d.cfg.Timing.PollInterval)
}

func (d *Device) handle(ev pilldispenser.Event) {
	next, effect := Transition(d.phase, ev)
	if effect == EffectNone {
		return
	}
	d.logger.Debug("event", "event", ev.String(), "phase", d.phase.String(), "next", next.String(), "effect", effect.String())

	switch effect {
	case EffectCalibrate:
		d.calibrate()
	case EffectStartDispensing:
		d.enter(next)
		msg := fmt.Sprintf("Dispensing started at day %d", next.Day)
		d.journal(msg)
		d.notify(msg)
	case EffectReportStatus:
		d.Debug()
	case EffectDumpLog:
		d.DumpLog()
	case EffectEraseLog:
		err := d.log.EraseAll()
		if err != nil {
			d.logger.Error("error erasing log", "err", err)
		}
	}
}

// enter persists the boot status of p before anything for p happens
func (d *Device) enter(p pilldispenser.Phase) {
	bs := p.Kind.BootStatus()
	err := d.store.SetBootStatus(bs)
	if err != nil {
		d.logger.Error("error persisting boot status", "boot_status", bs.String(), "err", err)
	}
	d.state.BootStatus = bs
	d.phase = p

	switch p.Kind {
	case pilldispenser.PhaseReadyToDispense, pilldispenser.PhaseDispensing:
		d.setLED(true)
	case pilldispenser.PhaseCalibrating:
		d.setLED(false)
	}
}

func (d *Device) calibrate() {
	d.enter(pilldispenser.Calibrating)

	// a zero count marks the calibration as incomplete until the new value is stored
	err := d.store.SetStepsPerRevolution(0)
	if err != nil {
		d.logger.Error("error clearing calibration", "err", err)
	}
	d.state.StepsPerRevolution = 0
	d.state.Calibrated = false

	steps, err := d.rotor.Calibrate()
	if err != nil || steps == 0 {
		d.logger.Error("calibration failed", "err", err)
		d.journal("Calibration failed")
		d.notify("Calibration failed")
		d.enter(pilldispenser.Idle)
		return
	}

	err = d.store.SetStepsPerRevolution(steps)
	if err != nil {
		d.logger.Error("error persisting steps per revolution", "err", err)
	}
	err = d.store.SetLastDay(0)
	if err != nil {
		d.logger.Error("error persisting last day", "err", err)
	}
	d.state.StepsPerRevolution = steps
	d.state.LastDay = 0
	d.state.Calibrated = true

	d.journal("Device calibrated")
	d.notify(fmt.Sprintf("Device calibrated, %d steps", steps))

	d.enter(pilldispenser.ReadyToDispense(0))
}

func (d *Device) dispenseDay() {
	day := d.phase.Day
	if day >= pilldispenser.Days {
		d.complete()
		return
	}

	d.cfg.Clock.Sleep(d.cfg.Timing.DispenseInterval)

	// drops seen before this rotation are not this day's pill
	d.keepPending(false)

	d.rotor.RotateCompartment(d.state.StepsPerRevolution)

	outcome := "pill not detected"
	if d.detectPill() {
		outcome = "pill detected"
	}
	msg := fmt.Sprintf("Day %d: %s", day+1, outcome)
	d.journal(msg)
	d.notify(msg)

	err := d.store.SetLastDay(day + 1)
	if err != nil {
		d.logger.Error("error persisting last day", "err", err)
	}
	d.state.LastDay = day + 1
	d.phase.Day = day + 1

	if d.phase.Day >= pilldispenser.Days {
		d.complete()
	}
}

// detectPill watches the queue for a drop until the detection window closes. Other
// events are kept for the next iteration.
func (d *Device) detectPill() bool {
	deadline := d.cfg.Clock.Now().Add(d.cfg.Timing.DetectionWindow)
	for {
		if d.keepPending(true) {
			return true
		}
		if !d.cfg.Clock.Now().Before(deadline) {
			return false
		}
		d.cfg.Clock.Sleep(d.cfg.Timing.PollInterval)
	}
}

// keepPending moves queued events into pending, except pill drops. It reports whether
// a drop was seen and stops at the first one when stopAtDrop is set.
func (d *Device) keepPending(stopAtDrop bool) bool {
	dropped := false
	for _, ev := range d.queue.Drain(nil) {
		if ev != pilldispenser.PillDropped {
			d.pending = append(d.pending, ev)
			continue
		}
		dropped = true
	}
	return stopAtDrop && dropped
}

func (d *Device) complete() {
	err := d.log.EraseAll()
	if err != nil {
		d.logger.Error("error erasing log", "err", err)
	}
	err = d.store.Reset()
	if err != nil {
		d.logger.Error("error resetting device state", "err", err)
	}
	d.state = State{BootStatus: pilldispenser.BootStatusUnset}

	d.logger.Info("dispensing complete")
	d.notify("Dispensing complete")

	d.enter(pilldispenser.Idle)
}

// journal writes msg to the EEPROM log
func (d *Device) journal(msg string) {
	d.logger.Info(msg)
	err := d.log.Append(msg)
	if err != nil {
		d.logger.Error("error writing log", "msg", msg, "err", err)
	}
}

// notify sends msg over the radio when joined
func (d *Device) notify(msg string) {
	if d.radio == nil || !d.radio.Joined() {
		return
	}
	err := d.radio.Send(msg)
	if err != nil {
		d.logger.Warn("error sending radio message", "msg", msg, "err", err)
	}
}

func (d *Device) setLED(on bool) {
	d.ledOn = on
	if d.led != nil {
		d.led.Set(on)
	}
}

// blink toggles the LED while idle
func (d *Device) blink() {
	if d.phase.Kind != pilldispenser.PhaseIdle {
		return
	}
	now := d.cfg.Clock.Now()
	if now.Sub(d.lastBlink) < d.cfg.Timing.BlinkInterval {
		return
	}
	d.lastBlink = now
	d.setLED(!d.ledOn)
}

// Debug prints the device state to the console
func (d *Device) Debug() {
	joined := d.radio != nil && d.radio.Joined()
	fmt.Fprintf(d.cfg.Console, "%s phase=%s boot_status=%s steps=%d last_day=%d calibrated=%t joined=%t\n",
		d.ts(), d.phase, d.state.BootStatus, d.state.StepsPerRevolution, d.state.LastDay, d.state.Calibrated, joined)
}

// DumpLog prints every log record to the console
func (d *Device) DumpLog() {
	n := 0
	for r := range d.log.Records() {
		n++
		suffix := ""
		if err := r.Err(); err != nil {
			suffix = " (corrupt)"
			d.logger.Warn("log record failed CRC check", "err", err)
		}
		fmt.Fprintf(d.cfg.Console, "Log message at address 0x%04x: %s%s\n", r.Addr, r.Message, suffix)
	}
	if n == 0 {
		fmt.Fprintln(d.cfg.Console, "Log is empty")
	}
}

// ts returns the uptime timestamp for console output
func (d *Device) ts() string {
	return "[" + d.cfg.Clock.Now().Sub(d.bootTime).Truncate(time.Millisecond).String() + "]"
}
