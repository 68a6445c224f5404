// submodule cmd contains command definitions
package main

import (
	"strings"
	"time"

	"github.com/CleepDevice/cleepapp-localmusic/internal/formatter"
	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file if needed, initialize the database and run migrations",
		Action: r.SetupDatabase,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the localmusic command endpoint over the local music library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address (default: server.host:server.port from config)",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Do not watch the storage directory for changes",
			},
		},
		Action: r.Serve,
	}
}

func filesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "files",
		Aliases: []string{"f"},
		Usage:   "Music file operations",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the music files of the backend",
				Flags:   outputFlags(),
				Action:  r.FilesList,
			},
			{
				Name:      "add",
				Usage:     "Upload music files, walking directories recursively",
				ArgsUsage: "PATH...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent uploads (max 10)",
						Value:   3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Uploads per second",
						Value: 2,
					},
					&cli.BoolFlag{
						Name:  "skip-existing",
						Usage: "Skip files already in the catalog",
					},
				},
				Action: r.FilesAdd,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete music files from the backend",
				ArgsUsage: "FILENAME...",
				Action:    r.FilesDelete,
			},
		},
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List playlists with their track counts",
				Flags:   outputFlags(),
				Action:  r.PlaylistsList,
			},
			{
				Name:  "show",
				Usage: "Print one playlist with its track details",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: " + formatList(),
						Value:   formatter.FormatText,
					},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "name",
						UsageText: "Playlist name",
					},
				},
				Action: r.PlaylistsShow,
			},
			{
				Name:      "add",
				Aliases:   []string{"create"},
				Usage:     "Create a playlist from catalog files, in the given order",
				ArgsUsage: "NAME FILENAME...",
				Action:    r.PlaylistsAdd,
			},
			{
				Name:      "update",
				Usage:     "Rename a playlist or change its tracks",
				ArgsUsage: "NAME [FILENAME...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "rename",
						Usage: "New playlist name",
					},
					&cli.StringSliceFlag{
						Name:  "add",
						Usage: "Append a catalog file to the playlist (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "remove",
						Usage: "Remove a track from the playlist (repeatable)",
					},
				},
				Action: r.PlaylistsUpdate,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "name",
						UsageText: "Playlist name",
					},
				},
				Action: r.PlaylistsDelete,
			},
			{
				Name:  "default",
				Usage: "Set the playlist played at startup",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "name",
						UsageText: "Playlist name",
					},
				},
				Action: r.PlaylistsDefault,
			},
			{
				Name:  "play",
				Usage: "Play a playlist on the device",
				Flags: playOptionsFlags(),
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "name",
						UsageText: "Playlist name",
					},
				},
				Action: r.PlaylistsPlay,
			},
			{
				Name:   "stop",
				Usage:  "Stop the playback on the device",
				Action: r.PlaylistsStop,
			},
			{
				Name:   "status",
				Usage:  "Show what the device is playing",
				Flags:  outputFlags(),
				Action: r.PlaylistsStatus,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files with a manifest (all playlists when no name is given)",
				ArgsUsage: "[NAME...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: " + formatList(),
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: localmusic_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent exports",
						Value:   5,
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

func alarmCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "alarm",
		Usage: "Drive the default playlist the way an alarm clock does",
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Resume the paused playback, or play the default playlist",
				Flags:  playOptionsFlags(),
				Action: r.AlarmStart,
			},
			{
				Name:  "stop",
				Usage: "Stop the alarm playback",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "snooze",
						Usage: "Pause instead of stopping, the next start resumes",
					},
				},
				Action: r.AlarmStop,
			},
		},
	}
}

func dumpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "dump",
		Usage:  "Fetch the catalog, configuration and playback state in one JSON document",
		Flags:  []cli.Flag{&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"}},
		Action: r.Dump,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive playlist editor",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Run the backend in-process over the configured storage and database",
			},
			&cli.DurationFlag{
				Name:  "poll",
				Usage: "Reload the remote configuration at this interval (0 disables polling)",
				Value: 30 * time.Second,
			},
		},
		Action: r.TUI,
	}
}

func playOptionsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "repeat",
			Aliases: []string{"r"},
			Usage:   "Start over after the last track",
		},
		&cli.BoolFlag{
			Name:    "shuffle",
			Aliases: []string{"s"},
			Usage:   "Play tracks in random order",
		},
		&cli.IntFlag{
			Name:  "volume",
			Usage: "Volume in percent (0 keeps the player default)",
		},
	}
}

func formatList() string {
	return strings.Join(formatter.Formats, ", ")
}
