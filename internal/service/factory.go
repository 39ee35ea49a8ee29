// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gatectl/internal/browser"
	"github.com/xkilldash9x/gatectl/internal/config"
	"github.com/xkilldash9x/gatectl/internal/overrides"
	"github.com/xkilldash9x/gatectl/internal/probe"
	"github.com/xkilldash9x/gatectl/internal/reporting"
)

// ComponentFactory builds the components for one session. Commands depend on
// this interface so tests can substitute their own pages.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, deps Dependencies, logger *zap.Logger) (*Components, error)
}

// Dependencies are the pieces supplied by the caller rather than built from
// configuration.
type Dependencies struct {
	Reporter  *reporting.Reporter
	Confirmer overrides.Confirmer
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create opens the host page and wires the store, controller and reader
// around it. The controller's stored overrides are not loaded yet.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, deps Dependencies, logger *zap.Logger) (*Components, error) {
	if deps.Reporter == nil {
		return nil, fmt.Errorf("a reporter is required")
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id))

	manager := browser.NewManager(cfg.Browser(), logger, browser.WithStorageKey(cfg.Overrides().StorageKey))
	page, err := manager.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s page: %w", cfg.Browser().Mode, err)
	}
	logger.Debug("Host page opened.", zap.String("mode", cfg.Browser().Mode))

	return Assemble(id, manager, page, cfg, deps, logger), nil
}

// Assemble wires components around an already open page.
func Assemble(id string, manager *browser.Manager, page browser.Page, cfg config.Interface, deps Dependencies, logger *zap.Logger) *Components {
	storage := browser.NewLocalStorage(page, cfg.Overrides().StorageKey)
	reader := probe.NewReader(page, cfg.Probe(), logger)

	confirmer := deps.Confirmer
	if confirmer == nil {
		confirmer = overrides.NeverConfirm
	}

	controller := overrides.NewController(storage, deps.Reporter, logger,
		overrides.WithReloader(page),
		overrides.WithConfirmer(confirmer),
		overrides.WithAutoRefresh(cfg.Overrides().AutoRefresh),
		overrides.WithRefreshDelay(cfg.Overrides().RefreshDelay),
		// A reload re-evaluates every flag, so the cached snapshot is stale.
		overrides.WithReloadHook(reader.Invalidate),
	)

	return &Components{
		SessionID:  id,
		Manager:    manager,
		Page:       page,
		Storage:    storage,
		Controller: controller,
		Reader:     reader,
		Reporter:   deps.Reporter,
		logger:     logger,
	}
}
