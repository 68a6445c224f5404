package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
)

// PlaylistRepository persists named, ordered track lists.
//
// Playlists are listed in creation order; a rename keeps the original position.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist with generated ID and sequence
func (r *PlaylistRepository) Create(name string, tracks []string) error {
	if name == "" {
		return fmt.Errorf("%w: playlist name is empty", shared.ErrInvalidInput)
	}

	if _, err := r.id(r.db, name); err == nil {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistExists, name)
	} else if !errors.Is(err, shared.ErrPlaylistNotFound) {
		return err
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	now := time.Now()

	return withTx(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO playlists (id, sequence, name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, sequence, name, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert playlist: %w", err)
		}
		return writeTracks(tx, id, tracks)
	})
}

// Get returns the tracks of the playlist named name in playlist order
func (r *PlaylistRepository) Get(name string) ([]string, error) {
	id, err := r.id(r.db, name)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query("SELECT filename FROM playlist_tracks WHERE playlist_id = ? ORDER BY position ASC", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []string{}
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, filename)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Update replaces the tracks of name and renames it to newName. An empty newName keeps the current name.
func (r *PlaylistRepository) Update(name, newName string, tracks []string) error {
	if newName == "" {
		newName = name
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		id, err := r.id(tx, name)
		if err != nil {
			return err
		}

		if newName != name {
			if _, err := r.id(tx, newName); err == nil {
				return fmt.Errorf("%w: %s", shared.ErrPlaylistExists, newName)
			} else if !errors.Is(err, shared.ErrPlaylistNotFound) {
				return err
			}
		}

		if _, err := tx.Exec("UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?", newName, time.Now(), id); err != nil {
			return fmt.Errorf("failed to update playlist: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear tracks: %w", err)
		}

		return writeTracks(tx, id, tracks)
	})
}

// Delete removes a playlist and its tracks
func (r *PlaylistRepository) Delete(name string) error {
	result, err := r.db.Exec("DELETE FROM playlists WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}

	return nil
}

// List returns every playlist in creation order
func (r *PlaylistRepository) List() (models.Playlists, error) {
	rows, err := r.db.Query(`
		SELECT p.name, t.filename
		FROM playlists p
		LEFT JOIN playlist_tracks t ON t.playlist_id = p.id
		ORDER BY p.sequence ASC, t.position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := models.Playlists{}
	for rows.Next() {
		var (
			name     string
			filename sql.NullString
		)
		if err := rows.Scan(&name, &filename); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}

		if n := len(playlists); n == 0 || playlists[n-1].Name != name {
			playlists = append(playlists, models.NamedTracks{Name: name, Tracks: []string{}})
		}
		if filename.Valid {
			last := &playlists[len(playlists)-1]
			last.Tracks = append(last.Tracks, filename.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Count returns the number of stored playlists
func (r *PlaylistRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM playlists").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	return n, nil
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (r *PlaylistRepository) id(q querier, name string) (string, error) {
	var id string
	err := q.QueryRow("SELECT id FROM playlists WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get playlist: %w", err)
	}
	return id, nil
}

func writeTracks(tx *sql.Tx, playlistID string, tracks []string) error {
	stmt, err := tx.Prepare("INSERT INTO playlist_tracks (playlist_id, position, filename) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, filename := range tracks {
		if _, err := stmt.Exec(playlistID, i, filename); err != nil {
			return fmt.Errorf("failed to insert track %s: %w", filename, err)
		}
	}
	return nil
}
