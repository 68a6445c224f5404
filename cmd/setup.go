package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/CleepDevice/cleepapp-localmusic/internal/library"
	"github.com/CleepDevice/cleepapp-localmusic/internal/repositories"
	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file when missing, then initializes the database and the storage directory.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			} else {
				r.config, r.configPath, r.loaded = config, configPath, true
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	version, _, err := shared.SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if err := os.MkdirAll(config.Storage.Path, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready: %s (schema version %d)\n", config.Database.Path, version)
	r.writePlain("✓ Storage directory: %s\n", config.Storage.Path)
	return nil
}

// openDatabase opens the configured database and applies pending migrations.
func openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// localBackend bundles an in-process backend with the resources it owns.
type localBackend struct {
	*services.LocalBackend
	library *library.Library
	player  *services.CommandPlayer
	db      *sql.DB
}

// Close stops playback and closes the database.
func (b *localBackend) Close() error {
	var errs []error
	if b.player != nil {
		errs = append(errs, b.player.Stop())
	}
	errs = append(errs, b.db.Close())
	return errors.Join(errs...)
}

// openLocalBackend builds a [services.LocalBackend] over the configured storage, database and player.
//
// The backend is not started; callers wire a publisher first.
func (r *Runner) openLocalBackend() (*localBackend, error) {
	if err := r.requireConfig(); err != nil {
		return nil, err
	}

	db, err := openDatabase(r.config)
	if err != nil {
		return nil, err
	}

	lib := library.New(r.config.Storage.Path, r.config.Storage.Extensions, shared.WithLogger(r.logger, "component", "library"))
	backend := services.NewLocalBackend(
		lib,
		repositories.NewPlaylistRepository(db),
		repositories.NewSettingsRepository(db),
		shared.WithLogger(r.logger, "component", "backend"),
	)

	lb := &localBackend{LocalBackend: backend, library: lib, db: db}
	if r.config.Player.Command != "" {
		lb.player = services.NewCommandPlayer(r.config.Player.Command, r.config.Player.Args, r.config.Player.Volume, shared.WithLogger(r.logger, "component", "player"))
		backend.SetPlayer(lb.player)
	} else {
		r.logger.Warn("no player command configured, playback disabled")
	}

	return lb, nil
}

// watchLibrary refreshes backend whenever the storage tree changes, until ctx is done.
func (r *Runner) watchLibrary(ctx context.Context, backend *localBackend) {
	go func() {
		err := backend.library.Watch(ctx, func() {
			if err := backend.Refresh(ctx); err != nil {
				r.logger.Error("library refresh failed", "error", err)
			}
		})
		if err != nil && ctx.Err() == nil {
			r.logger.Error("library watcher stopped", "error", err)
		}
	}()
}
