package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zflow-run/zflow/internal/wiring"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "zflowd",
		Short: "zflowd runs the durable workflow execution service",
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server, loading configuration from the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

// serve wires the service and runs it until SIGINT/SIGTERM, shutting the
// HTTP server and disposing the scope in the same order as the teacher's
// examples/http-api main.go.
func serve() error {
	log := logrus.New()
	cfg := wiring.LoadConfig()

	app, err := wiring.Build(cfg, log)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      app.Echo,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	serveErrCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("zflowd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	if err := app.Dispose(); err != nil {
		log.WithError(err).Error("scope disposal error")
	}

	log.Info("zflowd stopped")
	return nil
}
