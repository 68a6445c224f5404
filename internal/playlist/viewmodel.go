package playlist

import (
	"slices"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
)

// BuildViewModel projects a snapshot into displayable entries, in snapshot order.
//
// Exactly the entry named snapshot.Default is marked default; an absent or unknown default marks none.
func BuildViewModel(snapshot models.ConfigSnapshot) []models.PlaylistEntry {
	entries := make([]models.PlaylistEntry, 0, len(snapshot.Playlists))
	for _, p := range snapshot.Playlists {
		tracks := p.Tracks
		if tracks == nil {
			tracks = []string{}
		}
		entries = append(entries, models.PlaylistEntry{
			Name:      p.Name,
			Tracks:    slices.Clone(tracks),
			IsDefault: snapshot.Default != "" && p.Name == snapshot.Default,
		})
	}
	return entries
}
