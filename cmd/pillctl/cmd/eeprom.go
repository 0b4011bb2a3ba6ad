package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/calvinmclean/pilldispenser"
	"github.com/calvinmclean/pilldispenser/firmware/device"
	"github.com/calvinmclean/pilldispenser/firmware/eeprom"
	"github.com/calvinmclean/pilldispenser/internal/hostio"
	"github.com/calvinmclean/pilldispenser/internal/sim"
)

var eepromCmd = &cobra.Command{
	Use:   "eeprom",
	Short: "Inspect the dispenser EEPROM",
	Long: `Inspect the dispenser EEPROM from an image file (--image) or a chip on a Linux
I2C bus (--i2c).`,
}

var eepromDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every log record",
	RunE:  runEEPROMDump,
}

var eepromStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the persisted device state",
	RunE:  runEEPROMState,
}

var eepromEraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the log, and the device state with --all",
	RunE:  runEEPROMErase,
}

var (
	imagePath string
	i2cBus    string
	eraseAll  bool
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	corruptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func init() {
	rootCmd.AddCommand(eepromCmd)
	eepromCmd.AddCommand(eepromDumpCmd, eepromStateCmd, eepromEraseCmd)

	eepromCmd.PersistentFlags().StringVar(&imagePath, "image", "", "EEPROM image file")
	eepromCmd.PersistentFlags().StringVar(&i2cBus, "i2c", "", "periph.io I2C bus name, like 1 or /dev/i2c-1")
	eepromEraseCmd.Flags().BoolVar(&eraseAll, "all", false, "Also reset boot status, steps and last day")
}

func applyEEPROMFlags() {
	if imagePath != "" {
		cfg.EEPROM.Image = imagePath
		cfg.EEPROM.I2CBus = ""
	}
	if i2cBus != "" {
		cfg.EEPROM.I2CBus = i2cBus
		cfg.EEPROM.Image = ""
	}
}

// openEEPROM returns the configured chip. The returned close function saves image
// files that were written to.
func openEEPROM() (*eeprom.EEPROM, func() error, error) {
	e := cfg.EEPROM

	switch {
	case e.I2CBus != "":
		bus, err := hostio.OpenI2C(e.I2CBus)
		if err != nil {
			return nil, nil, err
		}
		return eeprom.New(bus, eeprom.Config{Address: e.Address}), bus.Close, nil

	case e.Image != "":
		chip, err := sim.LoadEEPROM(e.Image, sim.DefaultEEPROMSize, e.Address)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error {
			if chip.Writes == 0 {
				return nil
			}
			return chip.Save(e.Image)
		}
		return eeprom.New(chip, eeprom.Config{Address: e.Address, Sleep: noSleep}), closeFn, nil
	}

	return nil, nil, fmt.Errorf("either --image or --i2c must be specified")
}

func noSleep(time.Duration) {}

func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runEEPROMDump(cmd *cobra.Command, _ []string) error {
	ee, closeFn, err := openEEPROM()
	if err != nil {
		return err
	}
	defer closeFn()

	log := eeprom.NewLog(ee, eeprom.DefaultLayout(), logger)
	out := cmd.OutOrStdout()

	var rows [][]string
	for r := range log.Records() {
		status := "ok"
		if !r.Valid {
			status = "corrupt"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", r.Addr/eeprom.SlotSize), fmt.Sprintf("0x%04x", r.Addr), status, r.Message})
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "Log is empty")
		return nil
	}

	if !styled(out) {
		for _, row := range rows {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3])
		}
		return nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("SLOT", "ADDRESS", "CRC", "MESSAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) && rows[row][2] == "corrupt" {
				return cellStyle.Inherit(corruptStyle)
			}
			return cellStyle
		})
	fmt.Fprintln(out, t.Render())
	return nil
}

func runEEPROMState(cmd *cobra.Command, _ []string) error {
	ee, closeFn, err := openEEPROM()
	if err != nil {
		return err
	}
	defer closeFn()

	store := device.NewStateStore(ee, eeprom.DefaultLayout())
	bs, err := store.BootStatus()
	if err != nil {
		return err
	}
	steps, err := store.StepsPerRevolution()
	if err != nil {
		return err
	}
	lastDay, err := store.LastDay()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	values := [][2]string{
		{"boot_status", bs.String()},
		{"steps_per_revolution", fmt.Sprintf("%d", steps)},
		{"last_day", fmt.Sprintf("%d/%d", lastDay, pilldispenser.Days)},
	}
	for _, v := range values {
		if styled(out) {
			fmt.Fprintf(out, "%s %s\n", labelStyle.Width(22).Render(v[0]), valueStyle.Render(v[1]))
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", v[0], v[1])
	}
	return nil
}

func runEEPROMErase(cmd *cobra.Command, _ []string) error {
	ee, closeFn, err := openEEPROM()
	if err != nil {
		return err
	}

	err = eeprom.NewLog(ee, eeprom.DefaultLayout(), logger).EraseAll()
	if err == nil && eraseAll {
		err = device.NewStateStore(ee, eeprom.DefaultLayout()).Reset()
	}
	if err != nil {
		_ = closeFn()
		return err
	}

	err = closeFn()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "erased")
	return nil
}
