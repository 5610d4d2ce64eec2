package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/cropdoc/internal/session"
	"github.com/vbonduro/cropdoc/internal/web"
	"github.com/vbonduro/cropdoc/internal/web/templates"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.ListenAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	analyzer, err := newAnalyzer(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	build, serverCamera, err := newSessionBuilder(a.cfg, analyzer, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create camera backend: %w", err)
	}
	a.logger.Info("camera backend ready", "backend", a.cfg.CameraBackend)

	sessions := session.New(a.cfg.SessionTTL, build, a.logger)
	server := web.NewServer(sessions, templates.FS, web.Options{
		MaxUploadBytes: a.cfg.MaxUploadBytes,
		ServerCamera:   serverCamera,
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, a.cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		sessions.Close()
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("server error", "error", err)
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
