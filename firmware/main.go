//go:build tinygo

package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"github.com/calvinmclean/pilldispenser"
	"github.com/calvinmclean/pilldispenser/firmware/commands"
	"github.com/calvinmclean/pilldispenser/firmware/device"
	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
	"github.com/calvinmclean/pilldispenser/firmware/lora"
	"github.com/calvinmclean/pilldispenser/firmware/rotor"
)

const (
	buttonOnePin = machine.GP8
	buttonTwoPin = machine.GP9
	piezoPin     = machine.GP27
	optoForkPin  = machine.GP28
	ledPin       = machine.GP22
)

func main() {
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{Level: slog.LevelInfo}))

	coils := [4]machine.Pin{machine.GP2, machine.GP3, machine.GP6, machine.GP13}
	var stepperPins [4]rotor.Pin
	for i, p := range coils {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		stepperPins[i] = p
	}
	stepper, err := rotor.NewStepper(rotor.StepperConfig{
		Pins:      stepperPins,
		StepMode:  rotor.StepModeHalf,
		StepDelay: 1 * time.Millisecond,
	})
	if err != nil {
		panic("error creating stepper: " + err.Error())
	}

	optoForkPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	rotorCfg := rotor.DefaultConfig()
	rotorCfg.Logger = logger
	wheel := rotor.New(stepper, optoForkPin, rotorCfg)

	err = machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.GP16,
		SCL:       machine.GP17,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		panic("error configuring i2c: " + err.Error())
	}
	ee := eeprom.New(machine.I2C0, eeprom.Config{})

	err = machine.UART1.Configure(machine.UARTConfig{
		BaudRate: 9600,
		TX:       machine.GP4,
		RX:       machine.GP5,
	})
	if err != nil {
		panic("error configuring uart: " + err.Error())
	}
	loraCfg := lora.DefaultConfig()
	loraCfg.Logger = logger
	modem := lora.New(machine.UART1, loraCfg)

	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	timing := device.DefaultTiming()
	queue := device.NewQueue(device.DefaultQueueSize)
	inputs := device.NewInputs(queue, timing.Debounce, nil)

	configureInput(buttonOnePin, machine.PinInputPullup, machine.PinFalling, func() { inputs.Edge(pilldispenser.ButtonOnePressed) })
	configureInput(buttonTwoPin, machine.PinInputPullup, machine.PinFalling, func() { inputs.Edge(pilldispenser.ButtonTwoPressed) })
	configureInput(piezoPin, machine.PinInputPullup, machine.PinFalling, func() { inputs.Edge(pilldispenser.PillDropped) })

	d, err := device.New(device.Hardware{
		EEPROM: ee,
		Rotor:  wheel,
		Queue:  queue,
		Radio:  modem,
		LED:    ledPin,
	}, device.Config{
		Timing:  timing,
		Console: machine.Serial,
		Logger:  logger,
	})
	if err != nil {
		panic(err)
	}

	if !modem.Setup() {
		logger.Warn("radio unavailable, continuing with log only")
	}

	d.Run(context.Background(), func() {
		commands.Poll(machine.Serial, machine.Serial, d)
	})
}

// configureInput registers an edge interrupt. The handler runs in interrupt context and
// must only queue events.
func configureInput(pin machine.Pin, mode machine.PinMode, change machine.PinChange, handler func()) {
	pin.Configure(machine.PinConfig{Mode: mode})
	err := pin.SetInterrupt(change, func(machine.Pin) { handler() })
	if err != nil {
		panic("error setting interrupt: " + err.Error())
	}
}
