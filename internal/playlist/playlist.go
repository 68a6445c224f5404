package playlist

import (
	"context"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
)

// FileLister fetches the backend file catalog.
type FileLister interface {
	ListFiles(ctx context.Context) ([]models.FileEntry, error)
}

// PlaylistCommander issues the playlist commands a commit needs.
type PlaylistCommander interface {
	AddPlaylist(ctx context.Context, name string, files []string) error
	UpdatePlaylist(ctx context.Context, name, newName string, files []string) error
}

// ConfigReloader asks the backend to push its authoritative configuration again.
type ConfigReloader interface {
	Reload(ctx context.Context) error
}

// Subscriber delivers configuration snapshots to onChange until the returned function is called.
type Subscriber interface {
	Subscribe(onChange func(models.ConfigSnapshot)) (unsubscribe func())
}
