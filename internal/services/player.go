package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// VolumePlaceholder in player arguments is replaced by the playback volume.
const VolumePlaceholder = "{volume}"

// Player plays audio files in order.
type Player interface {
	// Play starts playing paths, replacing whatever is playing.
	Play(ctx context.Context, paths []string, opts models.PlayOptions) error
	// Pause suspends playback, keeping the position. Pausing an idle player is a no-op.
	Pause() error
	// Resume continues paused playback from the current track. A positive volume replaces the current one.
	Resume(volume int) error
	// Stop ends playback. Stopping an idle player is a no-op.
	Stop() error
	// State reports the current playback position.
	State() PlayerState
}

// PlayerState is a point-in-time view of a [Player].
type PlayerState struct {
	Running bool
	Paused  bool
	Index   int
	Path    string
}

// CommandPlayer plays files by starting an external program once per track, with the track path as last
// argument.
type CommandPlayer struct {
	command string
	args    []string
	volume  int
	logger  *log.Logger

	mu      sync.Mutex
	session *playSession
}

type playSession struct {
	paths    []string // play order
	opts     models.PlayOptions
	index    int
	paused   bool
	failures int // consecutive tracks that exited with an error
	cmd      *exec.Cmd
}

// advance moves to the next track and reports whether there is one.
func (s *playSession) advance() bool {
	s.index++
	if s.index < len(s.paths) {
		return true
	}
	if !s.opts.Repeat {
		return false
	}
	s.index = 0
	if s.opts.Shuffle {
		rand.Shuffle(len(s.paths), func(i, j int) { s.paths[i], s.paths[j] = s.paths[j], s.paths[i] })
	}
	return true
}

// NewCommandPlayer creates a player running command with args followed by a track path.
//
// volume is used when a playback does not ask for one.
func NewCommandPlayer(command string, args []string, volume int, logger *log.Logger) *CommandPlayer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CommandPlayer{command: command, args: args, volume: volume, logger: logger}
}

// Play starts the first track. It does not wait for playback to end.
func (p *CommandPlayer) Play(ctx context.Context, paths []string, opts models.PlayOptions) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: nothing to play", shared.ErrEmptyPlaylist)
	}
	if err := p.Stop(); err != nil {
		return err
	}

	s := &playSession{paths: slices.Clone(paths), opts: opts}
	if s.opts.Volume <= 0 {
		s.opts.Volume = p.volume
	}
	if opts.Shuffle {
		rand.Shuffle(len(s.paths), func(i, j int) { s.paths[i], s.paths[j] = s.paths[j], s.paths[i] })
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.start(s); err != nil {
		return err
	}
	p.session = s
	p.logger.Info("player started", "command", p.command, "tracks", len(paths), "repeat", opts.Repeat, "shuffle", opts.Shuffle)
	return nil
}

// Pause kills the running track and remembers its position.
func (p *CommandPlayer) Pause() error {
	p.mu.Lock()
	s := p.session
	if s == nil || s.paused {
		p.mu.Unlock()
		return nil
	}
	s.paused = true
	cmd := s.cmd
	s.cmd = nil
	p.mu.Unlock()

	p.logger.Info("player paused", "index", s.index)
	return kill(cmd)
}

// Resume restarts the current track of a paused playback.
func (p *CommandPlayer) Resume(volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil {
		return fmt.Errorf("%w: no playback to resume", shared.ErrInvalidInput)
	}
	if volume > 0 {
		// applies from the next started track
		s.opts.Volume = volume
	}
	if !s.paused {
		return nil
	}

	s.paused = false
	if err := p.start(s); err != nil {
		p.session = nil
		return err
	}
	p.logger.Info("player resumed", "index", s.index, "volume", s.opts.Volume)
	return nil
}

// Stop kills the running track and forgets the playback.
func (p *CommandPlayer) Stop() error {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()

	if s == nil {
		return nil
	}
	return kill(s.cmd)
}

// State reports the current playback position.
func (p *CommandPlayer) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil {
		return PlayerState{}
	}
	return PlayerState{Running: true, Paused: s.paused, Index: s.index, Path: s.paths[s.index]}
}

// Running reports whether a playback is in progress, paused or not.
func (p *CommandPlayer) Running() bool {
	return p.State().Running
}

// start launches the current track of s. p.mu must be held.
func (p *CommandPlayer) start(s *playSession) error {
	cmd := exec.Command(p.command, p.argv(s)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player %s: %w", p.command, err)
	}
	s.cmd = cmd
	p.logger.Debug("track started", "index", s.index, "path", s.paths[s.index], "pid", cmd.Process.Pid)

	go p.wait(s, cmd)
	return nil
}

// wait moves s to its next track once cmd exits on its own.
func (p *CommandPlayer) wait(s *playSession, cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != s || s.cmd != cmd {
		// paused, stopped or replaced
		return
	}
	s.cmd = nil

	if err != nil {
		s.failures++
		p.logger.Warn("track failed", "path", s.paths[s.index], "error", err)
	} else {
		s.failures = 0
	}

	switch {
	case s.failures >= len(s.paths):
		p.logger.Error("every track failed, playback stopped", "command", p.command)
		p.session = nil
	case !s.advance():
		p.logger.Info("playlist finished")
		p.session = nil
	default:
		if err := p.start(s); err != nil {
			p.logger.Error("playback stopped", "error", err)
			p.session = nil
		}
	}
}

func (p *CommandPlayer) argv(s *playSession) []string {
	volume := strconv.Itoa(s.opts.Volume)
	args := make([]string, 0, len(p.args)+1)
	for _, a := range p.args {
		args = append(args, strings.ReplaceAll(a, VolumePlaceholder, volume))
	}
	return append(args, s.paths[s.index])
}

func kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop player: %w", err)
	}
	return nil
}
