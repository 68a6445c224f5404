package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/CleepDevice/cleepapp-localmusic/internal/tasks"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	dispatcher services.Dispatcher
	remote     bool // dispatcher is built from config.Backend and follows config reloads
	loaded     bool // config was read from configPath
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.LibraryEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Dispatcher services.Dispatcher
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// Without a Dispatcher, commands reach the backend over HTTP at config.Backend.URL.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		dispatcher: opts.Dispatcher,
		remote:     opts.Dispatcher == nil,
		loaded:     opts.ConfigPath != "",
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.connect()
	return r
}

// connect (re)builds the remote dispatcher from the current config and the engine on top of it.
func (r *Runner) connect() {
	if r.remote {
		r.dispatcher = services.NewRPCDispatcher(
			r.config.Backend.URL, r.httpClient, r.config.Backend.RateLimit,
			shared.WithLogger(r.logger, "component", "rpc"),
		)
	}
	r.engine = tasks.NewLibraryEngine(r.dispatcher, shared.WithLogger(r.logger, "component", "tasks"))
}

// SetLogger replaces the logger used by the runner and the components it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.connect()
}

// Configure loads the file named by the --config flag before any command runs.
//
// A missing file keeps the built-in defaults so that setup can create it.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" || path == r.configPath {
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if cmd.IsSet("config") {
			r.logger.Warn("config file not found, using defaults", "path", path)
		}
		config = shared.DefaultConfig()
	case err != nil:
		return ctx, err
	default:
		r.loaded = true
	}

	r.config = config
	r.configPath = path
	shared.SetLogLevel(r.logger, config.Log.ParseLevel())
	r.connect()
	return ctx, nil
}

// requireConfig fails unless a config file was loaded.
func (r *Runner) requireConfig() error {
	if !r.loaded {
		return fmt.Errorf("%w: %s (run 'localmusic setup' first)", shared.ErrMissingConfig, r.configPath)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, filesCommand, playlistsCommand, alarmCommand, dumpCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
