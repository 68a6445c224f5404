package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Editor errors
	ErrValidation    = fmt.Errorf("validation failed")
	ErrEditorClosed  = fmt.Errorf("editor is not open")
	ErrTrackNotFound = fmt.Errorf("track not found")

	// Remote errors
	ErrRemoteCommand      = fmt.Errorf("remote command failed")
	ErrRemoteFetch        = fmt.Errorf("remote fetch failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUnknownCommand     = fmt.Errorf("unknown command")

	// Backend errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrPlaylistExists   = fmt.Errorf("playlist already exists")
	ErrEmptyPlaylist    = fmt.Errorf("playlist must not be empty")
	ErrFileNotFound     = fmt.Errorf("file not found")
	ErrFileExists       = fmt.Errorf("file already exists")
	ErrInvalidExtension = fmt.Errorf("invalid file extension")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
