package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/fasthooks"
	"github.com/aretw0/fasthooks/internal/cli"
	"github.com/aretw0/fasthooks/internal/presentation/tui"
	httpAdapter "github.com/aretw0/fasthooks/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve hook invocations over HTTP",
	Long: `Starts a long-lived process answering POST /hooks with the same handlers as
"run". Exposes GET /healthz and, when the metrics observer is enabled, GET /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		rt, err := cli.Build(cfg, logger, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if rt.Registry != nil {
			opts = append(opts, httpAdapter.WithGatherer(rt.Registry))
		}
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpAdapter.NewHandler(rt.App, opts...),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		serverErrors := make(chan error, 1)
		go func() {
			tui.PrintBanner(cmd.ErrOrStderr(), fasthooks.Version)
			fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete: %w", err)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
