// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gatectl/internal/browser/jsexec"
	"github.com/xkilldash9x/gatectl/internal/browser/session"
	"github.com/xkilldash9x/gatectl/internal/config"
)

// Manager opens host pages according to the configured mode and closes
// whatever is still open on shutdown.
type Manager struct {
	cfg        config.BrowserConfig
	storageKey string
	logger     *zap.Logger

	pages map[string]*managedPage
	mu    sync.Mutex
}

// managedPage removes itself from the manager when closed.
type managedPage struct {
	Page
	id      string
	onClose func()
	once    sync.Once
}

func (p *managedPage) Close(ctx context.Context) error {
	err := p.Page.Close(ctx)
	p.once.Do(p.onClose)
	return err
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStorageKey tells fixture pages which localStorage key holds the
// overrides. The built-in fixture defaults to hb_statsig_overrides.
func WithStorageKey(key string) ManagerOption {
	return func(m *Manager) { m.storageKey = key }
}

// NewManager creates a manager. Nothing is started until Open is called.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logger.Named("browser_manager"),
		pages:  make(map[string]*managedPage),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mode returns the configured connection mode.
func (m *Manager) Mode() string { return m.cfg.Mode }

// Open returns a page for the configured mode, wrapped in a Guard so
// restricted URLs are refused before any script runs.
func (m *Manager) Open(ctx context.Context) (Page, error) {
	raw, err := m.open(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	mp := &managedPage{Page: raw, id: id}
	mp.onClose = func() {
		m.mu.Lock()
		delete(m.pages, id)
		m.mu.Unlock()
		m.logger.Debug("Page removed from manager.", zap.String("page_id", id))
	}

	m.mu.Lock()
	m.pages[id] = mp
	m.mu.Unlock()

	m.logger.Debug("Page opened.", zap.String("page_id", id), zap.String("mode", m.cfg.Mode))
	return NewGuard(mp, m.cfg.RestrictedPrefixes), nil
}

func (m *Manager) open(ctx context.Context) (Page, error) {
	switch m.cfg.Mode {
	case config.ModeAttach:
		p, err := session.Attach(ctx, m.cfg, m.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHostUnavailable, err)
		}
		return p, nil
	case config.ModeLaunch:
		p, err := session.Launch(ctx, m.cfg, m.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHostUnavailable, err)
		}
		return p, nil
	case config.ModeFixture:
		return m.openFixture()
	default:
		return nil, fmt.Errorf("unknown browser mode %q", m.cfg.Mode)
	}
}

func (m *Manager) openFixture() (Page, error) {
	script := jsexec.DefaultFixture()
	if m.cfg.FixtureScript != "" {
		b, err := os.ReadFile(m.cfg.FixtureScript)
		if err != nil {
			return nil, fmt.Errorf("read fixture script: %w", err)
		}
		script = string(b)
	}

	storage := jsexec.NewStorage()
	if m.cfg.FixtureState != "" {
		var err error
		if storage, err = jsexec.OpenStorage(m.cfg.FixtureState); err != nil {
			return nil, fmt.Errorf("open fixture state: %w", err)
		}
	}

	p, err := jsexec.NewPage(m.cfg.FixtureURL, jsexec.BindStorageKey(script, m.storageKey), storage, m.logger)
	if err != nil {
		return nil, fmt.Errorf("load fixture page: %w", err)
	}
	return p, nil
}

// Tracked returns the number of pages opened and not yet closed.
func (m *Manager) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

// Shutdown closes every page that is still open.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	pages := make([]*managedPage, 0, len(m.pages))
	for _, p := range m.pages {
		pages = append(pages, p)
	}
	m.mu.Unlock()

	var firstErr error
	for _, p := range pages {
		if err := p.Close(ctx); err != nil {
			m.logger.Warn("Error closing page during shutdown.", zap.String("page_id", p.id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
