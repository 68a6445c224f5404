package main

import (
	"context"
	"fmt"

	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/CleepDevice/cleepapp-localmusic/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist editor against the remote backend, or an in-process one with --local.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.config.Log.ParseLevel())
	r.SetLogger(fileLogger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dispatcher services.Dispatcher = r.dispatcher
	var feed *services.ConfigFeed

	if cmd.Bool("local") {
		backend, err := r.openLocalBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		feed = services.NewConfigFeed(backend, shared.WithLogger(r.logger, "component", "feed"))
		backend.SetPublisher(feed)
		if err := backend.Start(ctx); err != nil {
			return fmt.Errorf("failed to start backend: %w", err)
		}
		r.watchLibrary(ctx, backend)
		dispatcher = backend
	} else {
		feed = services.NewConfigFeed(dispatcher, shared.WithLogger(r.logger, "component", "feed"))
		if interval := cmd.Duration("poll"); interval > 0 {
			go feed.Poll(ctx, interval)
		}
	}

	model := ui.NewModel(ctx, dispatcher, feed, r.logger)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
