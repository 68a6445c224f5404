package playlist

import (
	"context"
	"slices"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// ConfigCell is the locally held configuration shared by the reconciler and its readers.
//
// Readers keep the same *ConfigCell for the whole session and observe every update through it.
// Only a [Reconciler] writes to it.
type ConfigCell struct {
	snapshot     models.ConfigSnapshot
	view         []models.PlaylistEntry
	hasPlaylists bool
	version      uint64
}

// Snapshot returns a copy of the last merged configuration.
func (c *ConfigCell) Snapshot() models.ConfigSnapshot { return c.snapshot.Clone() }

// Default returns the default playlist name, or "".
func (c *ConfigCell) Default() string { return c.snapshot.Default }

// Playlists returns a copy of the view model.
func (c *ConfigCell) Playlists() []models.PlaylistEntry {
	out := make([]models.PlaylistEntry, len(c.view))
	for i, p := range c.view {
		p.Tracks = slices.Clone(p.Tracks)
		out[i] = p
	}
	return out
}

// Lookup returns the view model entry named name.
func (c *ConfigCell) Lookup(name string) (models.PlaylistEntry, bool) {
	for _, p := range c.view {
		if p.Name == name {
			p.Tracks = slices.Clone(p.Tracks)
			return p, true
		}
	}
	return models.PlaylistEntry{}, false
}

// HasPlaylists reports whether the view model is non-empty.
func (c *ConfigCell) HasPlaylists() bool { return c.hasPlaylists }

// Version counts the snapshots that changed the cell. Zero means nothing was received yet.
func (c *ConfigCell) Version() uint64 { return c.version }

// Reconciler merges configuration snapshots into a [ConfigCell].
type Reconciler struct {
	cell        *ConfigCell
	logger      *log.Logger
	unsubscribe func()
}

// NewReconciler creates a Reconciler writing into cell. A nil cell gets a fresh one.
func NewReconciler(cell *ConfigCell, logger *log.Logger) *Reconciler {
	if cell == nil {
		cell = &ConfigCell{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{cell: cell, logger: logger}
}

// Cell returns the shared configuration cell.
func (r *Reconciler) Cell() *ConfigCell { return r.cell }

// Apply merges snapshot into the cell and reports whether the cell changed.
//
// Empty snapshots (no keys present) are ignored. A snapshot equal to the current one changes nothing.
// Otherwise the view model is rebuilt, the configuration fields are overwritten in place and
// HasPlaylists is recomputed.
func (r *Reconciler) Apply(snapshot models.ConfigSnapshot) bool {
	if snapshot.IsEmpty() {
		r.logger.Debug("ignoring empty configuration snapshot")
		return false
	}

	c := r.cell
	merged := snapshot.Clone()
	if merged.Playlists == nil {
		// partial snapshot: fields that are absent keep their current value
		merged.Playlists = c.snapshot.Playlists.Clone()
	}
	if merged.KeepDefault {
		merged.Default = c.snapshot.Default
		merged.KeepDefault = false
	}

	if c.version > 0 && c.snapshot.Equal(merged) {
		return false
	}

	view := BuildViewModel(merged)

	c.snapshot.Playlists = merged.Playlists
	c.snapshot.Default = merged.Default
	c.view = view
	c.hasPlaylists = len(view) > 0
	c.version++

	r.logger.Debug("configuration reconciled", "playlists", len(view), "default", merged.Default, "version", c.version)
	return true
}

// Attach subscribes [Reconciler.Apply] to source, replacing any previous subscription.
//
// source must deliver on the goroutine that owns the reconciler; use a [Mailbox] otherwise.
func (r *Reconciler) Attach(source Subscriber) {
	r.Detach()
	r.unsubscribe = source.Subscribe(func(s models.ConfigSnapshot) { r.Apply(s) })
}

// Detach drops the current subscription, if any.
func (r *Reconciler) Detach() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// Mailbox hands snapshots from publishing goroutines to the owning goroutine.
//
// It holds at most one snapshot: a newer one replaces an unread older one.
type Mailbox struct {
	ch chan models.ConfigSnapshot
}

// NewMailbox creates an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan models.ConfigSnapshot, 1)}
}

// Put stores snapshot, discarding any unread one. Never blocks.
func (m *Mailbox) Put(snapshot models.ConfigSnapshot) {
	for {
		select {
		case m.ch <- snapshot:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

// Wait blocks until a snapshot is available or ctx is done.
func (m *Mailbox) Wait(ctx context.Context) (models.ConfigSnapshot, error) {
	select {
	case s := <-m.ch:
		return s, nil
	case <-ctx.Done():
		return models.ConfigSnapshot{}, ctx.Err()
	}
}
