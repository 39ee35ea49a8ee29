// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/gatectl/internal/config"
	"github.com/xkilldash9x/gatectl/internal/overrides"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Overrides() config.OverridesConfig {
	args := m.Called()
	return args.Get(0).(config.OverridesConfig)
}

func (m *MockConfig) Probe() config.ProbeConfig {
	args := m.Called()
	return args.Get(0).(config.ProbeConfig)
}

func (m *MockConfig) SetBrowserMode(mode string)     { m.Called(mode) }
func (m *MockConfig) SetBrowserRemoteURL(url string) { m.Called(url) }
func (m *MockConfig) SetBrowserTargetMatch(s string) { m.Called(s) }
func (m *MockConfig) SetOverridesAutoRefresh(b bool) { m.Called(b) }

// -- Override Controller Collaborators --

// MockStore mocks overrides.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

// MockReloader mocks overrides.Reloader.
type MockReloader struct {
	mock.Mock
}

func (m *MockReloader) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockConfirmer mocks overrides.Confirmer.
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

// MockRenderer records what overrides.Renderer receives. Rendering calls are
// frequent, so it records instead of matching expectations.
type MockRenderer struct {
	Statuses []overrides.Status
	Gates    []overrides.OverrideSet
	Exps     []overrides.OverrideSet
}

func (m *MockRenderer) RenderGates(set overrides.OverrideSet) {
	m.Gates = append(m.Gates, set)
}

func (m *MockRenderer) RenderExperiments(set overrides.OverrideSet) {
	m.Exps = append(m.Exps, set)
}

func (m *MockRenderer) Status(st overrides.Status) {
	m.Statuses = append(m.Statuses, st)
}

// LastStatus returns the most recent status, or the zero value.
func (m *MockRenderer) LastStatus() overrides.Status {
	if len(m.Statuses) == 0 {
		return overrides.Status{}
	}
	return m.Statuses[len(m.Statuses)-1]
}

// -- Browser Mocks --

// MockPage mocks browser.Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Evaluate(ctx context.Context, script string) (string, error) {
	args := m.Called(ctx, script)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
