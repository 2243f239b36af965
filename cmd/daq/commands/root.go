package commands

import (
	"fmt"

	"github.com/itohio/godaq/pkg/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "daq",
	Short: "4-channel analog DAQ host",
	Long: `daq talks to a 4-channel analog acquisition board over a serial port.

The board announces itself with ARDUINO_DAQ_READY, records a fixed-length
session after START and streams it back as CSV rows. daq saves each session
to arduino_daq_data_<timestamp>.csv and can clean and low-pass filter it.

Settings are read from a YAML file (default config.yaml); a missing file
means defaults.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "configuration file path")

	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
