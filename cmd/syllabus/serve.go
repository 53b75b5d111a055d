package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/syllabus/internal/api"
	"github.com/dgallion1/syllabus/internal/pipeline"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			proc, err := a.processor(ctx)
			if err != nil {
				return err
			}
			files, graph, err := a.sinks(cfg.OutputDir)
			if err != nil {
				return err
			}

			orch := pipeline.NewOrchestrator(cfg, proc, sinkList(files, graph), a.log)
			orch.Start(context.WithoutCancel(ctx))

			srv := api.NewServer(orch, files, graph, a.stats, a.log, cfg)
			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("starting syllabus service", "port", cfg.Port, "output_dir", files.Dir())
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					orch.Stop()
					return err
				}
			case <-ctx.Done():
			}

			a.log.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err = httpServer.Shutdown(shutdownCtx)
			orch.Stop()
			return err
		},
	}
}
