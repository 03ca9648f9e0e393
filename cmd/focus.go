package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tfufuu/nova/internal/ipc"
)

var focusCmd = &cobra.Command{
	Use:   "focus <window-id>",
	Short: "Focus a window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid window id %q", args[0])
		}

		client, err := ipc.Dial()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.FocusWindow(id)
		if err != nil {
			return err
		}
		if !resp.OK {
			exitError("%s (%s)", resp.Error, resp.Code)
		}
		fmt.Printf("Focused window %d\n", id)
		return nil
	},
}
