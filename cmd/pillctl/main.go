// pillctl is the bench tool for the pill dispenser: it talks to the LoRa modem, reads
// and erases the EEPROM, and runs the firmware on simulated hardware.
package main

import (
	"os"

	"github.com/calvinmclean/pilldispenser/cmd/pillctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
