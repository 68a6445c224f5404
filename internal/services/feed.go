package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// ConfigFeed fans configuration snapshots out to subscribers.
//
// Snapshots come from [ConfigFeed.Publish] (the local backend after each mutation) or from
// [ConfigFeed.Reload] (a fetch through a [ConfigGetter]). Deliveries are serialized, so every subscriber
// sees snapshots in publication order. Callbacks run on the publishing goroutine and must not publish.
type ConfigFeed struct {
	source ConfigGetter
	logger *log.Logger

	mu          sync.Mutex
	subscribers map[string]func(models.ConfigSnapshot)
	last        *models.ConfigSnapshot

	deliver sync.Mutex
}

// NewConfigFeed creates a feed. source may be nil when snapshots are only published.
func NewConfigFeed(source ConfigGetter, logger *log.Logger) *ConfigFeed {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ConfigFeed{
		source:      source,
		logger:      logger,
		subscribers: make(map[string]func(models.ConfigSnapshot)),
	}
}

// Subscribe registers fn and returns the function removing it.
//
// When a snapshot was already published, fn receives it immediately.
func (f *ConfigFeed) Subscribe(fn func(models.ConfigSnapshot)) func() {
	id := shared.GenerateID()

	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	f.subscribers[id] = fn
	last := f.last
	f.mu.Unlock()

	if last != nil {
		fn(last.Clone())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
		})
	}
}

// Publish records snapshot as the latest configuration and delivers it to every subscriber.
func (f *ConfigFeed) Publish(snapshot models.ConfigSnapshot) {
	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	stored := snapshot.Clone()
	f.last = &stored
	subscribers := make([]func(models.ConfigSnapshot), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subscribers = append(subscribers, fn)
	}
	f.mu.Unlock()

	f.logger.Debug("publishing configuration", "playlists", len(snapshot.Playlists), "subscribers", len(subscribers))

	for _, fn := range subscribers {
		fn(snapshot.Clone())
	}
}

// Last returns the latest published snapshot.
func (f *ConfigFeed) Last() (models.ConfigSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return models.ConfigSnapshot{}, false
	}
	return f.last.Clone(), true
}

// Reload fetches the configuration from the source and publishes it.
func (f *ConfigFeed) Reload(ctx context.Context) error {
	if f.source == nil {
		return fmt.Errorf("%w: no configuration source", shared.ErrServiceUnavailable)
	}

	snapshot, err := f.source.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteFetch, err)
	}

	f.Publish(snapshot)
	return nil
}

// Poll reloads the configuration every interval until ctx is done, so changes made by other clients show up.
// Failures are logged and polling continues.
func (f *ConfigFeed) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Reload(ctx); err != nil && ctx.Err() == nil {
				f.logger.Warn("configuration poll failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
