package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/itohio/godaq/pkg/device"
	"github.com/itohio/godaq/pkg/protocol"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Print one simulated session",
	Long: `Run the simulated board and print every line it sends for one session,
exactly as it would appear on the serial port. The mock section of the
configuration shapes the waveforms.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		dev := device.NewMock(cfg)
		if err := dev.Connect(); err != nil {
			return err
		}
		defer dev.Close()

		frames := dev.Frames()
		sent := false
		for {
			select {
			case <-ctx.Done():
				return nil
			case f, ok := <-frames:
				if !ok {
					return device.ErrClosed
				}
				fmt.Println(f.Raw)
				switch f.Kind {
				case protocol.KindReady:
					if !sent {
						if err := dev.Send(protocol.Start); err != nil {
							return err
						}
						sent = true
					}
				case protocol.KindEndOfData:
					return nil
				}
			}
		}
	},
}
