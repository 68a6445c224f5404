package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

const (
	CommandPath = "/command"
	UploadPath  = "/upload"

	maxUploadMemory = 32 << 20
)

// CommandHandler serves the command protocol on top of a [services.Dispatcher].
//
// Every answer is a [services.Response] envelope. Failed commands answer with error set and the error text as
// message; malformed requests additionally get a 4xx status.
type CommandHandler struct {
	dispatcher services.Dispatcher
	logger     *log.Logger
}

// NewCommandHandler creates a [CommandHandler] dispatching to d.
func NewCommandHandler(d services.Dispatcher, logger *log.Logger) *CommandHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CommandHandler{dispatcher: d, logger: logger}
}

// Routes implements [Handler].
func (h *CommandHandler) Routes() []string {
	return []string{CommandPath, UploadPath}
}

// ServeHTTP implements [http.Handler].
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	switch r.URL.Path {
	case CommandPath:
		h.handleCommand(w, r)
	case UploadPath:
		h.handleUpload(w, r)
	default:
		h.fail(w, http.StatusNotFound, fmt.Errorf("%w: %s", shared.ErrUnknownCommand, r.URL.Path))
	}
}

func (h *CommandHandler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req services.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: malformed command: %v", shared.ErrInvalidInput, err))
		return
	}
	if req.To != services.ModuleName {
		h.fail(w, http.StatusNotFound, fmt.Errorf("%w: no module %q", shared.ErrUnknownCommand, req.To))
		return
	}

	data, err := h.dispatch(r, req)
	if err != nil {
		status := http.StatusOK
		if errors.Is(err, shared.ErrUnknownCommand) {
			status = http.StatusNotFound
		} else if errors.Is(err, errMalformedParams) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("command failed", "command", req.Command, "error", err)
		h.fail(w, status, err)
		return
	}

	h.write(w, http.StatusOK, services.Response{Data: data})
}

var errMalformedParams = fmt.Errorf("%w: malformed params", shared.ErrInvalidInput)

func (h *CommandHandler) dispatch(r *http.Request, req services.Request) (json.RawMessage, error) {
	ctx := r.Context()
	d := h.dispatcher

	var (
		file     services.FileParams
		playlist services.PlaylistParams
		alarm    services.AlarmParams
	)
	switch req.Command {
	case services.CommandDeleteMusicFile:
		if err := decodeParams(req.Params, &file); err != nil {
			return nil, err
		}
	case services.CommandAddPlaylist, services.CommandUpdatePlaylist, services.CommandDeletePlaylist,
		services.CommandSetDefaultPlaylist, services.CommandPlayPlaylist:
		if err := decodeParams(req.Params, &playlist); err != nil {
			return nil, err
		}
	case services.CommandStartAlarm, services.CommandStopAlarm:
		if err := decodeParams(req.Params, &alarm); err != nil {
			return nil, err
		}
	}

	switch req.Command {
	case services.CommandGetMusicFiles:
		files, err := d.ListFiles(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(files)
	case services.CommandDeleteMusicFile:
		return nil, d.DeleteFile(ctx, file.Filename)
	case services.CommandAddPlaylist:
		return nil, d.AddPlaylist(ctx, playlist.PlaylistName, playlist.Files)
	case services.CommandUpdatePlaylist:
		return nil, d.UpdatePlaylist(ctx, playlist.PlaylistName, playlist.NewPlaylistName, playlist.Files)
	case services.CommandDeletePlaylist:
		return nil, d.DeletePlaylist(ctx, playlist.PlaylistName)
	case services.CommandSetDefaultPlaylist:
		return nil, d.SetDefaultPlaylist(ctx, playlist.PlaylistName)
	case services.CommandPlayPlaylist:
		return nil, d.PlayPlaylist(ctx, playlist.PlaylistName, playlist.PlayOptions)
	case services.CommandStopPlayback:
		return nil, d.StopPlayback(ctx)
	case services.CommandStartAlarm:
		return nil, d.StartAlarm(ctx, alarm.PlayOptions)
	case services.CommandStopAlarm:
		return nil, d.StopAlarm(ctx, alarm.Snoozed)
	case services.CommandGetPlayback:
		playback, err := d.GetPlayback(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(playback)
	case services.CommandGetModuleConfig:
		snapshot, err := d.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(snapshot)
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownCommand, req.Command)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedParams, err)
	}
	return nil
}

func (h *CommandHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: malformed upload: %v", shared.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	if cmd := r.FormValue("command"); cmd != "" && cmd != services.CommandAddMusicFile {
		h.fail(w, http.StatusNotFound, fmt.Errorf("%w: %q", shared.ErrUnknownCommand, cmd))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: missing file: %v", shared.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	if err := h.dispatcher.AddFile(r.Context(), header.Filename, file); err != nil {
		h.logger.Warn("upload failed", "filename", header.Filename, "error", err)
		h.fail(w, http.StatusOK, err)
		return
	}

	h.logger.Info("file uploaded", "filename", header.Filename, "size", header.Size)
	h.write(w, http.StatusOK, services.Response{})
}

func (h *CommandHandler) fail(w http.ResponseWriter, status int, err error) {
	h.write(w, status, services.Response{Error: true, Message: err.Error()})
}

func (h *CommandHandler) write(w http.ResponseWriter, status int, resp services.Response) {
	writeResponse(w, status, resp, h.logger)
}

func writeResponse(w http.ResponseWriter, status int, resp services.Response, logger *log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}
