package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"auditgraph/internal/httpapi"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	a := newApp(ctx, cfg, logger)
	defer a.Close(context.Background())

	api := httpapi.NewServer(a.reviews, a.laws,
		httpapi.WithLogger(logger),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		httpapi.WithVersion(version),
		httpapi.WithChat(a.chat),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: listening", "addr", addr, "store", cfg.Store.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("http: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
