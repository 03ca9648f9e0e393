package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tfufuu/nova/internal/ipc"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List windows managed by the running compositor",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ipc.Dial()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.ListWindows()
		if err != nil {
			return err
		}
		if !resp.OK {
			exitError("%s (%s)", resp.Error, resp.Code)
		}

		if len(resp.Windows) == 0 {
			fmt.Println("No windows")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAPP\tSTATE\tGEOMETRY\tFOCUSED")
		for _, win := range resp.Windows {
			focused := ""
			if win.Focused {
				focused = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%dx%d+%d+%d\t%s\n",
				win.ID, win.Title, win.AppID, win.State,
				win.Width, win.Height, win.X, win.Y, focused)
		}
		return w.Flush()
	},
}
