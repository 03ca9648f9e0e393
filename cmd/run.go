package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tfufuu/nova/internal/backend"
	"github.com/tfufuu/nova/internal/bridge"
	"github.com/tfufuu/nova/internal/compositor"
	"github.com/tfufuu/nova/internal/config"
	"github.com/tfufuu/nova/internal/ipc"
	"github.com/tfufuu/nova/internal/logger"
	"github.com/tfufuu/nova/internal/output"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the compositor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if cfg.Logging.LogLevel != "" {
			logger.SetLevel(cfg.Logging.LogLevel)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		br := bridge.New(cfg.Compositor.IntentQueue, cfg.Compositor.EventBuffer)
		defer br.Close()

		// The headless backend is also the fallback until a DRM backend is
		// wired to real hardware.
		be := backend.NewHeadless()
		core := compositor.New(be, br)

		seedOutputs(core)

		ctl, err := ipc.NewSocketServer(br)
		if err != nil {
			return err
		}
		if err := ctl.Start(); err != nil {
			return err
		}
		defer ctl.Stop()

		if err := core.Run(ctx); err != nil {
			// A fatal backend failure on the last output: flush and exit.
			logger.Errorf("Compositor exited: %v", err)
			os.Exit(1)
		}
		return nil
	},
}

// seedOutputs creates the initial outputs. Configured outputs come up as
// declared; with no configuration a single default output is created so the
// session always has a usable desktop.
func seedOutputs(core *compositor.Core) {
	cfg := config.Get()
	if len(cfg.Outputs) == 0 {
		core.Outputs().Add("HEADLESS-1", []output.Mode{{Width: 1920, Height: 1080, RefreshMHz: 60000}})
		return
	}
	for _, pref := range cfg.Outputs {
		w, h, refresh := pref.Width, pref.Height, pref.Refresh
		if w == 0 || h == 0 {
			w, h = 1920, 1080
		}
		if refresh == 0 {
			refresh = 60000
		}
		core.Outputs().Add(pref.Name, []output.Mode{{Width: w, Height: h, RefreshMHz: refresh}})
	}
}
