// internal/browser/manager_test.go
package browser_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/gatectl/internal/browser"
	"github.com/xkilldash9x/gatectl/internal/config"
)

func fixtureConfig() config.BrowserConfig {
	cfg := config.NewDefaultConfig().Browser()
	cfg.Mode = config.ModeFixture
	return cfg
}

func TestManager_Fixture(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	m := browser.NewManager(fixtureConfig(), zaptest.NewLogger(t))
	page, err := m.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Tracked())

	url, err := page.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://fixture.local/", url)

	out, err := page.Evaluate(ctx, `typeof window.StatsigClient.instance`)
	require.NoError(t, err)
	assert.Equal(t, "function", out)

	require.NoError(t, page.Close(ctx))
	assert.Equal(t, 0, m.Tracked())
	// Closing twice is harmless.
	require.NoError(t, page.Close(ctx))
}

func TestManager_FixtureFromFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	script := filepath.Join(dir, "page.js")
	require.NoError(t, os.WriteFile(script, []byte(`window.marker = "custom";`), 0o600))
	state := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(state, []byte(`{"hb_statsig_overrides":"{\"gates\":{}}"}`), 0o600))

	cfg := fixtureConfig()
	cfg.FixtureScript = script
	cfg.FixtureState = state

	m := browser.NewManager(cfg, zaptest.NewLogger(t))
	page, err := m.Open(ctx)
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	out, err := page.Evaluate(ctx, `window.marker`)
	require.NoError(t, err)
	assert.Equal(t, "custom", out)

	v, found, err := browser.NewLocalStorage(page, "hb_statsig_overrides").Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"gates":{}}`, v)
}

func TestManager_FixtureStorageKey(t *testing.T) {
	ctx := context.Background()
	m := browser.NewManager(fixtureConfig(), zaptest.NewLogger(t), browser.WithStorageKey("qa_overrides"))
	page, err := m.Open(ctx)
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	require.NoError(t, browser.NewLocalStorage(page, "qa_overrides").Set(ctx, `{"gates":{"beta_reports":true},"experiments":{}}`))
	require.NoError(t, page.Reload(ctx))

	out, err := page.Evaluate(ctx, `StatsigClient.instance(statsig_client_api_key)._store.getValues().feature_gates.beta_reports.r`)
	require.NoError(t, err)
	assert.Equal(t, "local_override", out)
}

func TestManager_FixtureErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing script", func(t *testing.T) {
		cfg := fixtureConfig()
		cfg.FixtureScript = filepath.Join(t.TempDir(), "missing.js")
		_, err := browser.NewManager(cfg, zaptest.NewLogger(t)).Open(ctx)
		assert.ErrorContains(t, err, "read fixture script")
	})

	t.Run("broken script", func(t *testing.T) {
		cfg := fixtureConfig()
		cfg.FixtureScript = filepath.Join(t.TempDir(), "broken.js")
		require.NoError(t, os.WriteFile(cfg.FixtureScript, []byte(`throw new Error("nope")`), 0o600))
		_, err := browser.NewManager(cfg, zaptest.NewLogger(t)).Open(ctx)
		assert.ErrorContains(t, err, "load fixture page")
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := fixtureConfig()
		cfg.Mode = "telepathy"
		_, err := browser.NewManager(cfg, zaptest.NewLogger(t)).Open(ctx)
		assert.ErrorContains(t, err, "unknown browser mode")
	})
}

func TestManager_RestrictedFixtureURL(t *testing.T) {
	ctx := context.Background()
	cfg := fixtureConfig()
	cfg.FixtureURL = "chrome://newtab"

	m := browser.NewManager(cfg, zaptest.NewLogger(t))
	page, err := m.Open(ctx)
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	_, err = page.Evaluate(ctx, `"x"`)
	assert.ErrorIs(t, err, browser.ErrHostUnavailable)
}

func TestManager_Shutdown(t *testing.T) {
	ctx := context.Background()
	m := browser.NewManager(fixtureConfig(), zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		_, err := m.Open(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, m.Tracked())

	require.NoError(t, m.Shutdown(ctx))
	assert.Equal(t, 0, m.Tracked())
}
