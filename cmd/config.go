package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tfufuu/nova/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		fmt.Println("[input]")
		fmt.Printf("focus_follows_mouse = %v\n", cfg.Input.FocusFollowsMouse)
		fmt.Printf("natural_scroll = %v\n", cfg.Input.NaturalScroll)
		fmt.Printf("repeat_rate = %d\n", cfg.Input.RepeatRate)
		fmt.Printf("repeat_delay = %d\n", cfg.Input.RepeatDelay)
		fmt.Printf("keyboard_layout = %q\n", cfg.Input.KeyboardLayout)

		fmt.Println("\n[compositor]")
		fmt.Printf("refresh_hint = %d\n", cfg.Compositor.RefreshHint)
		fmt.Printf("server_decorations = %v\n", cfg.Compositor.ServerDecor)
		fmt.Printf("intent_queue = %d\n", cfg.Compositor.IntentQueue)
		fmt.Printf("event_buffer = %d\n", cfg.Compositor.EventBuffer)

		for _, o := range cfg.Outputs {
			fmt.Printf("\n[[outputs]] # %s\n", o.Name)
			fmt.Printf("x = %d\ny = %d\n", o.X, o.Y)
			if o.Width > 0 {
				fmt.Printf("width = %d\nheight = %d\n", o.Width, o.Height)
			}
			if o.Scale > 0 {
				fmt.Printf("scale = %.1f\n", o.Scale)
			}
			if o.Disabled {
				fmt.Println("disabled = true")
			}
		}
		return nil
	},
}
