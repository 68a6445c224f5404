package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultPlaylistKey is the settings key holding the default playlist name.
const DefaultPlaylistKey = "default_playlist"

// SettingsRepository stores module settings as key/value pairs.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository with the given database connection
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the value stored for key and whether it was set
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	var value sql.NullString
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value.String, value.Valid, nil
}

// Set stores value under key, replacing any previous value
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SettingsRepository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// DefaultPlaylist returns the default playlist name, or "" when none is set
func (r *SettingsRepository) DefaultPlaylist() (string, error) {
	value, _, err := r.Get(DefaultPlaylistKey)
	return value, err
}

// SetDefaultPlaylist stores name as default playlist. An empty name clears it.
func (r *SettingsRepository) SetDefaultPlaylist(name string) error {
	if name == "" {
		return r.Delete(DefaultPlaylistKey)
	}
	return r.Set(DefaultPlaylistKey, name)
}
