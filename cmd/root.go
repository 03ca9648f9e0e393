package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tfufuu/nova/internal/config"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "nova",
		Short: "Nova - Wayland compositor core",
		Long: `Nova is a compositor core for Wayland sessions. It owns the display
outputs, input devices and client surfaces of a session, composes damaged
frames, and exposes a control socket for shells to list, focus and close
windows.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			return config.Init()
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to nova.toml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(configCmd)
}

// Exit with error message
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
