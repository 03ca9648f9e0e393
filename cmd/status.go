package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tfufuu/nova/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show compositor status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ipc.Dial()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.Status()
		if err != nil {
			return err
		}
		if !resp.OK || resp.Status == nil {
			exitError("%s (%s)", resp.Error, resp.Code)
		}

		st := resp.Status
		fmt.Printf("Seat:     %s (%s)\n", st.Seat, st.SeatCaps)
		fmt.Printf("Windows:  %d\n", st.Windows)
		if st.Focused != 0 {
			fmt.Printf("Focused:  %d\n", st.Focused)
		} else {
			fmt.Println("Focused:  none")
		}
		fmt.Printf("Locked:   %v\n", st.Locked)
		fmt.Println("Outputs:")
		for _, o := range st.Outputs {
			state := "disabled"
			if o.Enabled {
				state = "enabled"
			}
			primary := ""
			if o.Primary {
				primary = " primary"
			}
			fmt.Printf("  %s: %s at %d,%d scale %.1f (%s%s)\n",
				o.Name, o.Mode, o.X, o.Y, o.Scale, state, primary)
		}
		return nil
	},
}
