package commands

import (
	"fmt"

	"github.com/itohio/godaq/pkg/device"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := device.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found. Make sure the board is connected.")
			return nil
		}
		for i, p := range ports {
			fmt.Printf("%d: %s\t%s\n", i, p.Name, p.Description)
		}
		return nil
	},
}
