// daq drives a 4-channel analog acquisition board over its serial line
// protocol and post-processes the recordings.
//
// Usage:
//
//	daq ports                        # List serial ports
//	daq record -p /dev/ttyACM0       # Record one session, then clean and filter it
//	daq record --mock -n 3           # Record three sessions from the simulated board
//	daq clean <file.csv>             # Drop non-data lines from a recording
//	daq filter <file.csv>            # Low-pass filter a recording
//	daq simulate                     # Print one simulated session to stdout
//	daq config init                  # Write a default config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/itohio/godaq/cmd/daq/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
