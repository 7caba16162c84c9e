package config

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compozy/tally/pkg/logger"
)

// DefaultDebounce coalesces bursts of file events into a single reload.
const DefaultDebounce = 100 * time.Millisecond

// Manager holds the active configuration, swaps it atomically on reload and
// notifies subscribers of changes.
type Manager struct {
	Service     Service
	current     atomic.Value // stores *Config
	sources     []Source
	callbacks   []func(*Config)
	callbackMu  sync.RWMutex
	reloadMu    sync.Mutex
	watchCtx    context.Context
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
	closeOnce   sync.Once
	debounce    time.Duration
	timerMu     sync.Mutex
	timer       *time.Timer
}

// NewManager creates a new configuration manager.
func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{
		Service:   service,
		callbacks: make([]func(*Config), 0),
		debounce:  DefaultDebounce,
	}
}

// Load loads configuration from sources and starts watching those that
// support it.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	m.reloadMu.Lock()
	m.sources = append([]Source(nil), sources...)
	m.reloadMu.Unlock()

	config, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	m.applyConfig(config)

	if m.watchCancel != nil {
		m.watchCancel()
	}
	m.watchCtx, m.watchCancel = context.WithCancel(context.WithoutCancel(ctx))
	m.startWatching(sources)
	return config, nil
}

// Sources returns a copy of the currently configured sources.
func (m *Manager) Sources() []Source {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	return append([]Source{}, m.sources...)
}

// Get returns the current configuration, or nil before the first Load.
func (m *Manager) Get() *Config {
	config, _ := m.current.Load().(*Config)
	return config
}

// Reload re-reads every source. The active configuration is kept when the
// new one fails to load.
func (m *Manager) Reload(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	config, err := m.Service.Load(ctx, m.sources...)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	m.applyConfig(config)
	return nil
}

// SetDebounce sets the debounce duration for file watching. Zero reloads on
// every event.
func (m *Manager) SetDebounce(duration time.Duration) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	m.debounce = duration
}

// OnChange registers a callback invoked after the configuration changes.
func (m *Manager) OnChange(callback func(*Config)) {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// Close stops watching and releases every source.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		if m.watchCancel != nil {
			m.watchCancel()
		}
		m.timerMu.Lock()
		if m.timer != nil {
			m.timer.Stop()
		}
		m.timerMu.Unlock()
		m.watchWg.Wait()

		for _, source := range m.Sources() {
			if source == nil {
				continue
			}
			if err := source.Close(); err != nil {
				logger.FromContext(ctx).Error("failed to close configuration source", "error", err)
			}
		}
	})
	return nil
}

func (m *Manager) startWatching(sources []Source) {
	ctx := m.watchCtx
	for _, source := range sources {
		if source == nil {
			continue
		}
		src := source
		m.watchWg.Add(1)
		go func() {
			defer m.watchWg.Done()
			if err := src.Watch(ctx, func() { m.scheduleReload(ctx) }); err != nil {
				logger.FromContext(ctx).Debug("source does not support watching", "source", src.Type(), "error", err)
			}
		}()
	}
}

// scheduleReload restarts the debounce timer; the reload runs once events
// stop arriving for the debounce period.
func (m *Manager) scheduleReload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		if err := m.Reload(ctx); err != nil {
			logger.FromContext(ctx).Error("failed to reload configuration", "error", err)
		}
	}
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.debounce <= 0 {
		go reload()
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, reload)
}

// applyConfig stores config and notifies callbacks when it differs from the
// previous one.
func (m *Manager) applyConfig(config *Config) {
	previous := m.Get()
	m.current.Store(config)
	if previous != nil && configEqual(previous, config) {
		return
	}
	m.callbackMu.RLock()
	callbacks := slices.Clone(m.callbacks)
	m.callbackMu.RUnlock()
	for _, callback := range callbacks {
		if callback != nil {
			callback(config)
		}
	}
}

func configEqual(a, b *Config) bool {
	return reflect.DeepEqual(a, b)
}
