package commands

import (
	"fmt"
	"os"

	"github.com/itohio/godaq/pkg/config"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Long: `Write a configuration file with default values.

The path defaults to the --config flag. Existing files are kept unless
--force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("serial:  %s @ %d baud\n", cfg.Serial.Port, cfg.Serial.BaudRate)
		fmt.Printf("adc:     %.3f V full scale, %d counts\n", cfg.ADC.VRef, cfg.ADC.RawMax)
		fmt.Printf("session: every %s for %s (host timeout %s, ready timeout %s)\n",
			cfg.Session.SampleInterval, cfg.Session.Duration, cfg.Session.HostTimeout, cfg.Session.ReadyTimeout)
		fmt.Printf("output:  %s\n", cfg.Output.Dir)
		fmt.Printf("filter:  %g Hz, order %d\n", cfg.Filter.CutoffHz, cfg.Filter.Order)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
