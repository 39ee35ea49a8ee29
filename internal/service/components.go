// File: internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gatectl/internal/browser"
	"github.com/xkilldash9x/gatectl/internal/overrides"
	"github.com/xkilldash9x/gatectl/internal/probe"
	"github.com/xkilldash9x/gatectl/internal/reporting"
)

// shutdownTimeout bounds page and browser teardown, independent of the
// caller's context, which may already be cancelled.
const shutdownTimeout = 15 * time.Second

// Components holds everything one gatectl session works with. A session
// owns one page, one override controller and one snapshot cache.
type Components struct {
	// SessionID tags every log line of the session.
	SessionID string

	Manager    *browser.Manager
	Page       browser.Page
	Storage    *browser.LocalStorage
	Controller *overrides.Controller
	Reader     *probe.Reader
	Reporter   *reporting.Reporter

	logger *zap.Logger
}

// Logger returns the session logger.
func (c *Components) Logger() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// Shutdown closes the page and whatever the manager still tracks. It is
// safe to call on partially built components.
func (c *Components) Shutdown() {
	logger := c.Logger()
	logger.Debug("Beginning components shutdown sequence.")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if c.Page != nil {
		if err := c.Page.Close(ctx); err != nil {
			logger.Warn("Error closing page.", zap.Error(err))
		}
	}
	if c.Manager != nil {
		if err := c.Manager.Shutdown(ctx); err != nil {
			logger.Warn("Error during browser manager shutdown.", zap.Error(err))
		}
	}
	logger.Debug("Session components shut down.")
}
