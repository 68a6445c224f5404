package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/CleepDevice/cleepapp-localmusic/internal/formatter"
	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/playlist"
	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/CleepDevice/cleepapp-localmusic/internal/tasks"
	"github.com/urfave/cli/v3"
)

// fetchConfig reloads the backend configuration through a feed and returns the reconciled cell.
func (r *Runner) fetchConfig(ctx context.Context) (*playlist.ConfigCell, *services.ConfigFeed, error) {
	feed := services.NewConfigFeed(r.dispatcher, shared.WithLogger(r.logger, "component", "feed"))
	reconciler := playlist.NewReconciler(nil, shared.WithLogger(r.logger, "component", "reconciler"))
	reconciler.Attach(feed)

	if err := feed.Reload(ctx); err != nil {
		reconciler.Detach()
		return nil, nil, err
	}
	return reconciler.Cell(), feed, nil
}

func requireName(cmd *cli.Command) (string, error) {
	name := shared.CleanName(cmd.StringArg("name"))
	if name == "" {
		return "", fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}
	return name, nil
}

// PlaylistsList prints every playlist in configuration order, marking the default one.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	cell, _, err := r.fetchConfig(ctx)
	if err != nil {
		return err
	}

	playlists := cell.Playlists()
	if cmd.Bool("json") || cmd.Bool("pretty") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	if !cell.HasPlaylists() {
		r.writePlain("No playlist yet. Create one with 'localmusic playlists add NAME FILENAME...'\n")
		return nil
	}
	for _, p := range playlists {
		marker := " "
		if p.IsDefault {
			marker = "★"
		}
		r.writePlain("%s %s (%d tracks)\n", marker, p.Name, p.TrackCount())
	}
	return nil
}

// PlaylistsShow renders one playlist joined with the catalog metadata of its tracks.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	cell, _, err := r.fetchConfig(ctx)
	if err != nil {
		return err
	}
	entry, ok := cell.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
	}

	files, err := playlist.NewCatalog(r.dispatcher, r.logger).Fetch(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Render(formatter.NewPlaylistExport(entry, files), format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// PlaylistsAdd creates a playlist with the given catalog files, in order.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	if args.Len() < 2 {
		return fmt.Errorf("%w: usage: playlists add NAME FILENAME...", shared.ErrMissingArgument)
	}

	catalog := playlist.NewCatalog(r.dispatcher, shared.WithLogger(r.logger, "component", "catalog"))
	files, err := catalog.Refresh(ctx)
	if err != nil {
		return err
	}

	editor := playlist.NewEditor(r.dispatcher, nil, shared.WithLogger(r.logger, "component", "editor"))
	editor.Open(files)
	if err := editor.SetName(args.First()); err != nil {
		return err
	}
	for _, track := range args.Tail() {
		if err := editor.MoveToAssigned(track); err != nil {
			return err
		}
	}

	state := editor.State()
	if err := editor.Commit(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Playlist created: %s (%d tracks)\n", shared.CleanName(state.Name), len(state.Assigned))
	return nil
}

// PlaylistsUpdate renames a playlist or changes its tracks.
//
// Filenames given as arguments replace the tracks; --remove and --add are applied afterwards.
// Saved tracks whose file left the catalog are dropped.
func (r *Runner) PlaylistsUpdate(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	if args.Len() == 0 {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}
	name := shared.CleanName(args.First())
	replace := args.Tail()
	rename := cmd.String("rename")
	add := cmd.StringSlice("add")
	remove := cmd.StringSlice("remove")

	if len(replace) == 0 && len(add) == 0 && len(remove) == 0 && rename == "" {
		return fmt.Errorf("%w: nothing to update, give filenames, --add, --remove or --rename", shared.ErrMissingArgument)
	}

	cell, feed, err := r.fetchConfig(ctx)
	if err != nil {
		return err
	}
	entry, ok := cell.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
	}

	catalog := playlist.NewCatalog(r.dispatcher, shared.WithLogger(r.logger, "component", "catalog"))
	files, err := catalog.Refresh(ctx)
	if err != nil {
		return err
	}

	editor := playlist.NewEditor(r.dispatcher, feed, shared.WithLogger(r.logger, "component", "editor"))
	editor.OpenExisting(files, entry.Name, entry.Tracks)
	for _, track := range editor.Dropped() {
		r.writePlain("! %s is no longer in the catalog, dropped\n", track)
	}

	if len(replace) > 0 {
		for _, track := range editor.State().Tracks() {
			if err := editor.MoveToAvailable(track); err != nil {
				return err
			}
		}
		for _, track := range replace {
			if err := editor.MoveToAssigned(track); err != nil {
				return err
			}
		}
	}
	for _, track := range remove {
		if err := editor.MoveToAvailable(track); err != nil {
			return err
		}
	}
	for _, track := range add {
		if err := editor.MoveToAssigned(track); err != nil {
			return err
		}
	}
	if rename != "" {
		if err := editor.SetName(rename); err != nil {
			return err
		}
	}

	state := editor.State()
	if err := editor.Commit(ctx); err != nil {
		return err
	}

	updated, _ := cell.Lookup(shared.CleanName(state.Name))
	r.writePlain("✓ Playlist updated: %s (%d tracks)\n", shared.CleanName(state.Name), updated.TrackCount())
	return nil
}

// PlaylistsDelete deletes a playlist.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}
	if err := r.dispatcher.DeletePlaylist(ctx, name); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteCommand, err)
	}
	r.logger.Info("playlist deleted", "name", name)
	r.writePlain("✓ Playlist deleted: %s\n", name)
	return nil
}

// PlaylistsDefault marks a playlist as the one played at startup.
func (r *Runner) PlaylistsDefault(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}
	if err := r.dispatcher.SetDefaultPlaylist(ctx, name); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteCommand, err)
	}
	r.writePlain("★ Default playlist: %s\n", name)
	return nil
}

// PlaylistsPlay starts playing a playlist on the device.
func (r *Runner) PlaylistsPlay(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}
	opts, err := playOptions(cmd)
	if err != nil {
		return err
	}
	if err := r.dispatcher.PlayPlaylist(ctx, name, opts); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteCommand, err)
	}
	r.writePlain("▶ Playing %s%s\n", name, describeOptions(opts))
	return nil
}

// PlaylistsStop stops the playback on the device.
func (r *Runner) PlaylistsStop(ctx context.Context, cmd *cli.Command) error {
	if err := r.dispatcher.StopPlayback(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteCommand, err)
	}
	r.writePlain("■ Playback stopped\n")
	return nil
}

// PlaylistsStatus prints the playback state of the device.
func (r *Runner) PlaylistsStatus(ctx context.Context, cmd *cli.Command) error {
	playback, err := r.dispatcher.GetPlayback(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteFetch, err)
	}

	if cmd.Bool("json") || cmd.Bool("pretty") {
		return r.writeJSON(playback, cmd.Bool("pretty"))
	}

	if !playback.Running {
		r.writePlain("■ Stopped\n")
		return nil
	}

	state := "▶ Playing"
	if playback.Paused {
		state = "⏸ Paused"
	}
	opts := models.PlayOptions{Repeat: playback.Repeat, Shuffle: playback.Shuffle}
	r.writePlain("%s %s (%d tracks)%s\n", state, playback.PlaylistName, playback.Tracks, describeOptions(opts))
	if playback.Track != "" {
		r.writePlain("  [%d/%d] %s\n", playback.Index+1, playback.Tracks, playback.Track)
	}
	return nil
}

// AlarmStart resumes the paused playback or plays the default playlist.
func (r *Runner) AlarmStart(ctx context.Context, cmd *cli.Command) error {
	opts, err := playOptions(cmd)
	if err != nil {
		return err
	}
	if err := r.dispatcher.StartAlarm(ctx, opts); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteCommand, err)
	}
	r.writePlain("⏰ Alarm started%s\n", describeOptions(opts))
	return nil
}

// AlarmStop snoozes or stops the alarm playback.
func (r *Runner) AlarmStop(ctx context.Context, cmd *cli.Command) error {
	snoozed := cmd.Bool("snooze")
	if err := r.dispatcher.StopAlarm(ctx, snoozed); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteCommand, err)
	}
	if snoozed {
		r.writePlain("⏸ Alarm snoozed\n")
	} else {
		r.writePlain("■ Alarm stopped\n")
	}
	return nil
}

func playOptions(cmd *cli.Command) (models.PlayOptions, error) {
	volume := cmd.Int("volume")
	if volume < 0 || volume > 100 {
		return models.PlayOptions{}, fmt.Errorf("%w: volume must be between 0 and 100, got %d", shared.ErrInvalidArgument, volume)
	}
	return models.PlayOptions{
		Repeat:  cmd.Bool("repeat"),
		Shuffle: cmd.Bool("shuffle"),
		Volume:  int(volume),
	}, nil
}

func describeOptions(opts models.PlayOptions) string {
	var parts []string
	if opts.Repeat {
		parts = append(parts, "repeat")
	}
	if opts.Shuffle {
		parts = append(parts, "shuffle")
	}
	if opts.Volume > 0 {
		parts = append(parts, fmt.Sprintf("volume %d%%", opts.Volume))
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

// PlaylistsExport writes playlists to files in the chosen format, with a manifest.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()

	r.logger.Info("exporting playlists", "format", cmd.String("format"), "playlists", len(names))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchConfig, tasks.FetchCatalog:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportPlaylist:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.BulkExport(ctx, progressCh, names, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Exported: %d/%d (%s)\n", result.SuccessfulExports, result.TotalPlaylists, result.Format)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d playlists:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.PlaylistName, res.Error)
			}
		}
		return fmt.Errorf("%w: %d of %d exports failed", shared.ErrInvalidArgument, result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

// Dump prints the catalog, configuration and playback state as one JSON document.
func (r *Runner) Dump(ctx context.Context, cmd *cli.Command) error {
	result, err := r.engine.Dump(ctx, nil)
	if err != nil {
		return err
	}
	return r.writeJSON(result, cmd.Bool("pretty"))
}
