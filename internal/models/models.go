// package models defines the data model for the local music playlist manager
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// FileEntry is a music file known to the backend catalog.
type FileEntry struct {
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`  // Storage path, only set by the backend
	Title    string `json:"title,omitempty"` // Title tag when readable
	Artist   string `json:"artist,omitempty"`
	Duration int    `json:"duration,omitempty"` // Duration in seconds, mp3 only
	Size     int64  `json:"size,omitempty"`
}

// CompareFiles orders entries by filename, ascending.
func CompareFiles(a, b FileEntry) int {
	return strings.Compare(a.Filename, b.Filename)
}

// SortFiles sorts files in place by filename; equal filenames keep their relative order.
func SortFiles(files []FileEntry) {
	slices.SortStableFunc(files, CompareFiles)
}

// Filenames returns the filename of each entry, in order.
func Filenames(files []FileEntry) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	return names
}

// PlaylistEntry is the displayable projection of one playlist of a [ConfigSnapshot].
type PlaylistEntry struct {
	Name      string   `json:"name"`
	Tracks    []string `json:"tracks"`
	IsDefault bool     `json:"is_default"`
}

// TrackCount returns the number of tracks in the playlist.
func (p PlaylistEntry) TrackCount() int { return len(p.Tracks) }

// NamedTracks is one entry of [Playlists].
type NamedTracks struct {
	Name   string
	Tracks []string
}

// Playlists maps playlist names to ordered filenames, preserving insertion order.
//
// A nil Playlists means the key was absent; an empty non-nil value is an empty mapping.
type Playlists []NamedTracks

// Index returns the position of name, or -1.
func (p Playlists) Index(name string) int {
	return slices.IndexFunc(p, func(e NamedTracks) bool { return e.Name == name })
}

// Get returns the tracks of name.
func (p Playlists) Get(name string) ([]string, bool) {
	if i := p.Index(name); i >= 0 {
		return p[i].Tracks, true
	}
	return nil, false
}

// Set replaces the tracks of an existing name in place or appends a new entry.
func (p Playlists) Set(name string, tracks []string) Playlists {
	if i := p.Index(name); i >= 0 {
		p[i].Tracks = tracks
		return p
	}
	return append(p, NamedTracks{Name: name, Tracks: tracks})
}

// Delete removes name if present.
func (p Playlists) Delete(name string) Playlists {
	if i := p.Index(name); i >= 0 {
		return slices.Delete(p, i, i+1)
	}
	return p
}

// Names returns the playlist names in order.
func (p Playlists) Names() []string {
	names := make([]string, len(p))
	for i, e := range p {
		names[i] = e.Name
	}
	return names
}

// Clone returns a deep copy, keeping nil-ness.
func (p Playlists) Clone() Playlists {
	if p == nil {
		return nil
	}
	out := make(Playlists, len(p))
	for i, e := range p {
		out[i] = NamedTracks{Name: e.Name, Tracks: slices.Clone(e.Tracks)}
	}
	return out
}

// Equal reports whether both mappings hold the same entries in the same order.
func (p Playlists) Equal(other Playlists) bool {
	if (p == nil) != (other == nil) {
		return false
	}
	return slices.EqualFunc(p, other, func(a, b NamedTracks) bool {
		return a.Name == b.Name && slices.Equal(a.Tracks, b.Tracks)
	})
}

// UnmarshalJSON decodes a JSON object keeping its key order. Duplicate keys keep the first position and the last value.
func (p *Playlists) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode playlists: %w", err)
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("playlists must be a JSON object, got %v", tok)
	}

	out := Playlists{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode playlist name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected playlist key %v", keyTok)
		}

		var tracks []string
		if err := dec.Decode(&tracks); err != nil {
			return fmt.Errorf("failed to decode tracks of %q: %w", name, err)
		}
		if tracks == nil {
			tracks = []string{}
		}
		out = out.Set(name, tracks)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode playlists: %w", err)
	}

	*p = out
	return nil
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (p Playlists) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		tracks := e.Tracks
		if tracks == nil {
			tracks = []string{}
		}
		value, err := json.Marshal(tracks)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ConfigSnapshot is a complete, point-in-time copy of the module configuration owned by the server.
type ConfigSnapshot struct {
	Playlists Playlists `json:"playlists"`
	Default   string    `json:"default"` // empty means no default playlist

	// KeepDefault is set when the decoded object has no default key at all.
	// Receivers merging the snapshot keep their current default.
	KeepDefault bool `json:"-"`
}

type snapshotJSON struct {
	Playlists Playlists `json:"playlists"`
	Default   *string   `json:"default"`
}

// UnmarshalJSON accepts null for default and records whether the key was present.
func (s *ConfigSnapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Playlists Playlists       `json:"playlists"`
		Default   json.RawMessage `json:"default"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Playlists = raw.Playlists
	s.Default = ""
	s.KeepDefault = raw.Default == nil
	if raw.Default != nil {
		var def *string
		if err := json.Unmarshal(raw.Default, &def); err != nil {
			return fmt.Errorf("invalid default playlist: %w", err)
		}
		if def != nil {
			s.Default = *def
		}
	}
	return nil
}

// MarshalJSON writes null for an empty default, as the backend does.
func (s ConfigSnapshot) MarshalJSON() ([]byte, error) {
	if s.KeepDefault {
		return json.Marshal(struct {
			Playlists Playlists `json:"playlists"`
		}{s.Playlists})
	}
	raw := snapshotJSON{Playlists: s.Playlists}
	if s.Default != "" {
		raw.Default = &s.Default
	}
	return json.Marshal(raw)
}

// IsEmpty reports whether the snapshot carries no keys, as happens while the configuration is still loading.
func (s ConfigSnapshot) IsEmpty() bool {
	return s.Playlists == nil && s.Default == ""
}

// Equal reports structural equality.
func (s ConfigSnapshot) Equal(other ConfigSnapshot) bool {
	return s.Default == other.Default && s.Playlists.Equal(other.Playlists)
}

// Clone returns a deep copy.
func (s ConfigSnapshot) Clone() ConfigSnapshot {
	return ConfigSnapshot{Playlists: s.Playlists.Clone(), Default: s.Default, KeepDefault: s.KeepDefault}
}

// PlayOptions tune how a playlist is played.
type PlayOptions struct {
	Repeat  bool `json:"repeat,omitempty"`  // start over after the last track
	Shuffle bool `json:"shuffle,omitempty"` // random order, drawn again on every repeat
	Volume  int  `json:"volume,omitempty"`  // percent; zero keeps the player default
}

// Playback describes what the local backend is currently playing.
type Playback struct {
	Running      bool   `json:"running"`
	Paused       bool   `json:"paused,omitempty"`
	PlaylistName string `json:"playlistname,omitempty"`
	Tracks       int    `json:"tracks,omitempty"`
	Index        int    `json:"index"` // position of the current track in play order
	Track        string `json:"track,omitempty"`
	Repeat       bool   `json:"repeat,omitempty"`
	Shuffle      bool   `json:"shuffle,omitempty"`
}
