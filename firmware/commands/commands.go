package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/calvinmclean/pilldispenser"
)

// ErrQueueFull is returned when the controller did not accept the event
var ErrQueueFull = errors.New("event queue full")

type Command struct {
	Flag        byte
	Run         func(Controller, io.Writer) error
	Description string
}

// Controller receives the events produced by console commands
type Controller interface {
	Submit(pilldispenser.Event) bool
}

// Reader is a non-blocking byte source such as machine.Serial
type Reader interface {
	ReadByte() (byte, error)
	Buffered() int
}

func submit(ev pilldispenser.Event) func(Controller, io.Writer) error {
	return func(c Controller, _ io.Writer) error {
		if !c.Submit(ev) {
			return fmt.Errorf("%w: %s", ErrQueueFull, ev)
		}
		return nil
	}
}

var (
	CalibrateCommand = &Command{
		Flag:        'C',
		Run:         submit(pilldispenser.ButtonOnePressed),
		Description: "Calibrate the rotor, same as button one.",
	}
	StartCommand = &Command{
		Flag:        'S',
		Run:         submit(pilldispenser.ButtonTwoPressed),
		Description: "Start dispensing, same as button two.",
	}
	PillCommand = &Command{
		Flag:        'P',
		Run:         submit(pilldispenser.PillDropped),
		Description: "Simulate a pill drop on the piezo sensor.",
	}
	DebugCommand = &Command{
		Flag:        'D',
		Run:         submit(pilldispenser.StatusRequested),
		Description: "Print the current state.",
	}
	LogCommand = &Command{
		Flag:        'L',
		Run:         submit(pilldispenser.LogDumpRequested),
		Description: "Print every message in the EEPROM log.",
	}
	EraseCommand = &Command{
		Flag:        'E',
		Run:         submit(pilldispenser.LogEraseRequested),
		Description: "Erase the EEPROM log.",
	}
	HelpCommand = &Command{
		Flag:        'H',
		Description: "Show all available commands and their descriptions.",
		Run: func(c Controller, w io.Writer) error {
			fmt.Fprintln(w, "Available Commands:")
			for _, cmd := range commands {
				fmt.Fprintf(w, "%c: %s\n", cmd.Flag, cmd.Description)
			}
			fmt.Fprintf(w, "%c: %s\n", 'H', "Show all available commands and their descriptions.")
			return nil
		},
	}
)

var commands = []*Command{
	CalibrateCommand,
	StartCommand,
	PillCommand,
	DebugCommand,
	LogCommand,
	EraseCommand,
}

// Lookup returns the command for flag
func Lookup(flag byte) (*Command, bool) {
	if flag == HelpCommand.Flag {
		return HelpCommand, true
	}
	for _, cmd := range commands {
		if cmd.Flag == flag {
			return cmd, true
		}
	}
	return nil, false
}

// Handle runs the command for flag. Unknown flags are ignored.
func Handle(flag byte, w io.Writer, c Controller) error {
	cmd, ok := Lookup(flag)
	if !ok {
		return nil
	}
	return cmd.Run(c, w)
}

// Poll runs a command for every byte already received, without blocking
func Poll(in Reader, w io.Writer, c Controller) {
	for in.Buffered() > 0 {
		b, err := in.ReadByte()
		if err != nil {
			return
		}

		err = Handle(b, w, c)
		if err != nil {
			fmt.Fprintln(w, "error:", err.Error())
		}
	}
}
