package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/server"
	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Serve runs the command endpoint over an in-process backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, err := r.openLocalBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	feed := services.NewConfigFeed(backend, shared.WithLogger(r.logger, "component", "feed"))
	unsubscribe := feed.Subscribe(func(s models.ConfigSnapshot) {
		r.logger.Info("configuration changed", "playlists", len(s.Playlists), "default", s.Default)
	})
	defer unsubscribe()
	backend.SetPublisher(feed)

	if err := backend.Start(ctx); err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}

	if !cmd.Bool("no-watch") {
		r.watchLibrary(ctx, backend)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           newCommandRouter(backend, shared.WithLogger(r.logger, "component", "http")),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	r.logger.Info("serving localmusic commands", "address", listener.Addr().String(), "storage", r.config.Storage.Path)
	r.writePlain("Listening on http://%s%s\n", listener.Addr().String(), server.CommandPath)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// newCommandRouter routes command and upload requests to d with panic recovery and request logging.
func newCommandRouter(d services.Dispatcher, logger *log.Logger) http.Handler {
	router := server.NewBasicRouter(logger)
	router.Use(server.Recover(logger), server.Logging(logger))
	router.Handler(server.NewCommandHandler(d, logger))
	return router
}
