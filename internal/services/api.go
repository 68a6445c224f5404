// RPC [Dispatcher] implementation
//
// Speaks the command protocol of the localmusic backend over HTTP: JSON commands on /command and
// multipart uploads on /upload, both answered with a [Response] envelope.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const defaultBaseURL string = "http://localhost:8080"

// RPCDispatcher implements [Dispatcher] against a remote backend.
type RPCDispatcher struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewRPCDispatcher creates a dispatcher for the backend at baseURL.
//
// rateLimit caps the number of commands per second; zero disables limiting.
func NewRPCDispatcher(baseURL string, client *http.Client, rateLimit float64, logger *log.Logger) *RPCDispatcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	d := &RPCDispatcher{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
	if rateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}
	return d
}

// ListFiles returns the music file catalog.
func (d *RPCDispatcher) ListFiles(ctx context.Context) ([]models.FileEntry, error) {
	var files []models.FileEntry
	if err := d.Command(ctx, CommandGetMusicFiles, nil, &files); err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.FileEntry{}
	}
	return files, nil
}

// AddFile uploads r as name.
func (d *RPCDispatcher) AddFile(ctx context.Context, name string, r io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("command", CommandAddMusicFile); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.WriteField("to", ModuleName); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/upload", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return d.do(req, CommandAddMusicFile, nil)
}

// DeleteFile removes filename.
func (d *RPCDispatcher) DeleteFile(ctx context.Context, filename string) error {
	return d.Command(ctx, CommandDeleteMusicFile, FileParams{Filename: filename}, nil)
}

// AddPlaylist creates a playlist.
func (d *RPCDispatcher) AddPlaylist(ctx context.Context, name string, files []string) error {
	return d.Command(ctx, CommandAddPlaylist, PlaylistParams{PlaylistName: name, Files: files}, nil)
}

// UpdatePlaylist replaces the tracks of name and renames it to newName.
func (d *RPCDispatcher) UpdatePlaylist(ctx context.Context, name, newName string, files []string) error {
	params := PlaylistParams{PlaylistName: name, NewPlaylistName: newName, Files: files}
	return d.Command(ctx, CommandUpdatePlaylist, params, nil)
}

// DeletePlaylist removes name.
func (d *RPCDispatcher) DeletePlaylist(ctx context.Context, name string) error {
	return d.Command(ctx, CommandDeletePlaylist, PlaylistParams{PlaylistName: name}, nil)
}

// SetDefaultPlaylist flags name as default playlist.
func (d *RPCDispatcher) SetDefaultPlaylist(ctx context.Context, name string) error {
	return d.Command(ctx, CommandSetDefaultPlaylist, PlaylistParams{PlaylistName: name}, nil)
}

// PlayPlaylist starts playback of name.
func (d *RPCDispatcher) PlayPlaylist(ctx context.Context, name string, opts models.PlayOptions) error {
	return d.Command(ctx, CommandPlayPlaylist, PlaylistParams{PlaylistName: name, PlayOptions: opts}, nil)
}

// StopPlayback ends the current playback.
func (d *RPCDispatcher) StopPlayback(ctx context.Context) error {
	return d.Command(ctx, CommandStopPlayback, nil, nil)
}

// StartAlarm starts or resumes the alarm playback.
func (d *RPCDispatcher) StartAlarm(ctx context.Context, opts models.PlayOptions) error {
	return d.Command(ctx, CommandStartAlarm, AlarmParams{PlayOptions: opts}, nil)
}

// StopAlarm pauses or stops the alarm playback.
func (d *RPCDispatcher) StopAlarm(ctx context.Context, snoozed bool) error {
	return d.Command(ctx, CommandStopAlarm, AlarmParams{Snoozed: snoozed}, nil)
}

// GetPlayback reports the current playback.
func (d *RPCDispatcher) GetPlayback(ctx context.Context) (models.Playback, error) {
	var playback models.Playback
	err := d.Command(ctx, CommandGetPlayback, nil, &playback)
	return playback, err
}

// GetConfig returns the module configuration.
func (d *RPCDispatcher) GetConfig(ctx context.Context) (models.ConfigSnapshot, error) {
	var snapshot models.ConfigSnapshot
	err := d.Command(ctx, CommandGetModuleConfig, nil, &snapshot)
	return snapshot, err
}

// Command sends command with params and decodes the response data into result, which may be nil.
func (d *RPCDispatcher) Command(ctx context.Context, command string, params, result any) error {
	body := Request{Command: command, To: ModuleName}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		body.Params = raw
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/command", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return d.do(req, command, result)
}

func (d *RPCDispatcher) do(req *http.Request, command string, result any) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	d.logger.Debug("sending command", "command", command, "url", req.URL.String())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: %s: status %d", shared.ErrRemoteCommand, command, resp.StatusCode)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if envelope.Error {
		d.logger.Debug("command failed", "command", command, "message", envelope.Message)
		return fmt.Errorf("%w: %s: %s", shared.ErrRemoteCommand, command, envelope.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d", shared.ErrRemoteCommand, command, resp.StatusCode)
	}

	if result != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return fmt.Errorf("failed to decode %s data: %w", command, err)
		}
	}

	return nil
}
