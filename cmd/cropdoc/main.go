package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/cropdoc/internal/config"
	"github.com/vbonduro/cropdoc/internal/logging"
)

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{cleanup: func() {}}

	root := &cobra.Command{
		Use:   "cropdoc",
		Short: "Crop doctor: photo in, crop diagnosis out",
		Long: `cropdoc serves a bilingual page where a farmer captures or uploads a
crop photo and gets back the crop name, any disease and a short solution
from a multimodal model.

Configuration is read from the environment (VISION_BACKEND, OPENAI_API_KEY,
CAMERA_BACKEND, LOG_LEVEL, ...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg, a.logger, a.cleanup = cfg, logger, cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.cleanup()
		},
	}

	root.AddCommand(newServeCmd(a), newDiagnoseCmd(a))
	return root
}
