package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/pilldispenser"
	"github.com/calvinmclean/pilldispenser/firmware/commands"
	"github.com/calvinmclean/pilldispenser/firmware/device"
	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
	"github.com/calvinmclean/pilldispenser/firmware/lora"
	"github.com/calvinmclean/pilldispenser/firmware/rotor"
	"github.com/calvinmclean/pilldispenser/internal/hostio"
	"github.com/calvinmclean/pilldispenser/internal/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the firmware on simulated hardware",
	Long: `Run the dispenser main loop against a simulated EEPROM, rotor and LoRa modem.

Console commands are read from stdin, one character each (H for help). With --image
the EEPROM is loaded from and saved to a file, so stopping and restarting the
simulation exercises crash recovery.`,
	RunE: runSimulate,
}

var (
	simPills        int
	simJoinFailures int
	simInterval     time.Duration
	simWindow       time.Duration
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&imagePath, "image", "", "EEPROM image file to load and save")
	simulateCmd.Flags().IntVar(&simPills, "pills", 0, "Loaded compartments (default from config)")
	simulateCmd.Flags().IntVar(&simJoinFailures, "join-failures", 0, "Rejected joins before the modem joins")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 0, "Wait before each day's rotation (default from config)")
	simulateCmd.Flags().DurationVar(&simWindow, "window", 0, "Pill detection window (default from config)")
}

func applySimulationFlags(cmd *cobra.Command) {
	if cmd.Flags().Lookup("pills") != nil && cmd.Flags().Changed("pills") {
		cfg.Simulation.Pills = simPills
	}
	if cmd.Flags().Lookup("join-failures") != nil && cmd.Flags().Changed("join-failures") {
		cfg.Simulation.JoinFailures = simJoinFailures
	}
	if cmd.Flags().Lookup("interval") != nil && cmd.Flags().Changed("interval") {
		cfg.Simulation.DispenseIntervalMs = int(simInterval.Milliseconds())
	}
	if cmd.Flags().Lookup("window") != nil && cmd.Flags().Changed("window") {
		cfg.Simulation.DetectionWindowMs = int(simWindow.Milliseconds())
	}
}

// refilledRotor loads the simulated wheel right before the first rotation after each
// calibration. Calibration spins every compartment past the dispense hole.
type refilledRotor struct {
	*rotor.Rotor
	wheel  *sim.Rotor
	pills  int
	loaded bool
}

func (r *refilledRotor) Calibrate() (uint16, error) {
	r.loaded = false
	return r.Rotor.Calibrate()
}

func (r *refilledRotor) RotateCompartment(stepsPerRevolution uint16) {
	if !r.loaded {
		r.wheel.LoadPills(r.pills)
		r.loaded = true
	}
	r.Rotor.RotateCompartment(stepsPerRevolution)
}

// stdinConn lets the console input use the same buffered port as a modem link
type stdinConn struct {
	io.Reader
}

func (stdinConn) Write(p []byte) (int, error) { return len(p), nil }
func (stdinConn) Close() error                { return nil }

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	s := cfg.Simulation
	chip := sim.NewEEPROM(sim.DefaultEEPROMSize, cfg.EEPROM.Address)
	if cfg.EEPROM.Image != "" {
		var err error
		chip, err = sim.LoadEEPROM(cfg.EEPROM.Image, sim.DefaultEEPROMSize, cfg.EEPROM.Address)
		if err != nil {
			return err
		}
	}

	rotorCfg := sim.DefaultRotorConfig()
	rotorCfg.StartPosition = s.StartPosition
	wheel := sim.NewRotor(rotorCfg)

	modem := sim.NewModem()
	modem.JoinFailures = s.JoinFailures

	loraCfg := cfg.Modem.LoraConfig()
	loraCfg.StartupDelay = 0
	loraCfg.Logger = logger
	radio := lora.New(modem, loraCfg)

	timing := s.Timing()
	queue := device.NewQueue(device.DefaultQueueSize)
	inputs := device.NewInputs(queue, timing.Debounce, nil)
	wheel.OnDrop = func() { inputs.Edge(pilldispenser.PillDropped) }

	rotorLogCfg := rotor.DefaultConfig()
	rotorLogCfg.Logger = logger

	positioner := &refilledRotor{
		Rotor: rotor.New(wheel, wheel, rotorLogCfg),
		wheel: wheel,
		pills: s.Pills,
	}

	out := cmd.OutOrStdout()
	d, err := device.New(device.Hardware{
		EEPROM: eeprom.New(chip, eeprom.Config{Address: cfg.EEPROM.Address, Sleep: noSleep}),
		Rotor:  positioner,
		Queue:  queue,
		Radio:  radio,
	}, device.Config{
		Timing:  timing,
		Console: out,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if !radio.Setup() {
		logger.Warn("radio unavailable, continuing with log only")
	}

	console := hostio.NewBufferedPort(stdinConn{Reader: cmd.InOrStdin()})
	fmt.Fprintln(out, "simulation running, H for help, Ctrl-C to stop")

	d.Run(ctx, func() {
		commands.Poll(console, out, d)
	})

	for _, msg := range modem.SentMessages() {
		fmt.Fprintf(out, "uplink: %s\n", msg)
	}
	logger.Info("simulation stopped",
		"phase", d.Phase().String(),
		"pills_left", wheel.Pills(),
		"messages_sent", len(modem.SentMessages()),
	)

	if cfg.EEPROM.Image == "" {
		return nil
	}
	err = chip.Save(cfg.EEPROM.Image)
	if err != nil {
		return fmt.Errorf("error saving EEPROM image: %w", err)
	}
	return nil
}
