package tally

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/compozy/tally/pkg/config"
	"github.com/compozy/tally/pkg/logger"
)

// Live keeps an Engine in sync with a config.Manager. Each configuration
// change builds a fresh Engine sharing the first engine's monitoring service;
// a change that fails to build keeps the previous one.
type Live struct {
	current atomic.Pointer[Engine]
	opts    []Option
}

// NewLive builds an Engine from the manager's active configuration and
// rebuilds it whenever the configuration changes. A nil m uses the manager
// attached to ctx (see config.ManagerFromContext).
func NewLive(ctx context.Context, m *config.Manager, opts ...Option) (*Live, error) {
	if m == nil {
		m = config.ManagerFromContext(ctx)
	}
	cfg := m.Get()
	if cfg == nil {
		return nil, fmt.Errorf("config manager has no loaded configuration")
	}
	engine, err := NewContext(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	l := &Live{opts: append(append([]Option(nil), opts...), WithMonitoring(engine.Monitoring()))}
	l.current.Store(engine)
	log := logger.FromContext(ctx)
	m.OnChange(func(next *config.Config) {
		rebuilt, err := NewContext(context.WithoutCancel(ctx), next, l.opts...)
		if err != nil {
			log.Error("failed to rebuild engine, keeping previous configuration", "error", err)
			return
		}
		l.current.Store(rebuilt)
		log.Debug("engine rebuilt from configuration change")
	})
	return l, nil
}

// Shutdown releases the monitoring service shared by every rebuilt engine.
func (l *Live) Shutdown(ctx context.Context) error {
	return l.Engine().Shutdown(ctx)
}

// Engine returns the engine for the current configuration.
func (l *Live) Engine() *Engine {
	return l.current.Load()
}
