package commands

import (
	"fmt"

	"github.com/itohio/godaq/pkg/filter"
	"github.com/itohio/godaq/pkg/record"
	"github.com/spf13/cobra"
)

var (
	filterCutoff float64
	filterOrder  int
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file.csv>...",
	Short: "Drop non-data lines from recordings",
	Long: `Drop non-data lines from recordings.

Each <name>.csv is copied to <name>_clean.csv keeping the header and the
data rows only. A missing header is restored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, src := range args {
			dst, err := record.Clean(src)
			if err != nil {
				return err
			}
			fmt.Printf("Cleaned data saved to %s\n", dst)
		}
		return nil
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter <file.csv>...",
	Short: "Low-pass filter recordings",
	Long: `Low-pass filter recordings with a zero-phase Butterworth filter.

The sample rate is estimated from the Time(ms) column. Each <name>.csv is
written to <name>_filtered.csv with an extra <channel>_filtered column per
voltage channel. Cutoff and order default to the filter section of the
configuration.

Examples:
  daq filter arduino_daq_data_20240517_140309_clean.csv
  daq filter --cutoff 1.5 --order 6 session.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cutoff, order := cfg.Filter.CutoffHz, cfg.Filter.Order
		if cmd.Flags().Changed("cutoff") {
			cutoff = filterCutoff
		}
		if cmd.Flags().Changed("order") {
			order = filterOrder
		}

		for _, src := range args {
			dst, err := filter.File(src, cutoff, order)
			if err != nil {
				return err
			}
			fmt.Printf("Filtered data saved to %s\n", dst)
		}
		return nil
	},
}

// postProcess cleans and filters a fresh recording, printing a summary.
func postProcess(src string, cutoff float64, order int) {
	clean, err := record.Clean(src)
	if err != nil {
		fmt.Printf("Error cleaning data file: %v\n", err)
		return
	}
	fmt.Printf("Cleaned data saved to %s\n", clean)

	if s, err := filter.Summarize(clean); err == nil {
		fmt.Println(s)
	}

	filtered, err := filter.File(clean, cutoff, order)
	if err != nil {
		fmt.Printf("Error filtering data file: %v\n", err)
		return
	}
	fmt.Printf("Filtered data saved to %s\n", filtered)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&filterCutoff, "cutoff", filter.DefaultCutoff, "low-pass cutoff frequency in Hz")
	cmd.Flags().IntVar(&filterOrder, "order", filter.DefaultOrder, "filter order (4 = 24 dB/octave)")
}

func init() {
	addFilterFlags(filterCmd)
}
