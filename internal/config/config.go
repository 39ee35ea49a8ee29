// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Browser connection modes.
const (
	// ModeAttach connects to an already running Chrome over its remote debugging endpoint.
	ModeAttach = "attach"
	// ModeLaunch starts a dedicated Chrome process and navigates it to browser.start_url.
	ModeLaunch = "launch"
	// ModeFixture serves an in-process page from a fixture script. No browser required.
	ModeFixture = "fixture"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Overrides() OverridesConfig
	Probe() ProbeConfig

	// Browser Setters
	SetBrowserMode(string)
	SetBrowserRemoteURL(string)
	SetBrowserTargetMatch(string)

	// Overrides Setters
	SetOverridesAutoRefresh(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	OverridesCfg OverridesConfig `mapstructure:"overrides" yaml:"overrides"`
	ProbeCfg     ProbeConfig     `mapstructure:"probe" yaml:"probe"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Overrides() OverridesConfig { return c.OverridesCfg }
func (c *Config) Probe() ProbeConfig         { return c.ProbeCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserMode(m string)        { c.BrowserCfg.Mode = m }
func (c *Config) SetBrowserRemoteURL(u string)   { c.BrowserCfg.RemoteURL = u }
func (c *Config) SetBrowserTargetMatch(s string) { c.BrowserCfg.TargetMatch = s }
func (c *Config) SetOverridesAutoRefresh(b bool) { c.OverridesCfg.AutoRefresh = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig describes how the host page is reached.
type BrowserConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`

	// attach mode
	RemoteURL   string `mapstructure:"remote_url" yaml:"remote_url"`
	TargetMatch string `mapstructure:"target_match" yaml:"target_match"`

	// launch mode
	StartURL        string         `mapstructure:"start_url" yaml:"start_url"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`

	// fixture mode
	FixtureScript string `mapstructure:"fixture_script" yaml:"fixture_script"`
	FixtureURL    string `mapstructure:"fixture_url" yaml:"fixture_url"`
	// FixtureState is a JSON file holding the fixture page's localStorage
	// between runs. Empty keeps storage in memory.
	FixtureState string `mapstructure:"fixture_state" yaml:"fixture_state"`

	// RestrictedPrefixes lists URL prefixes that scripts are never evaluated against.
	RestrictedPrefixes []string `mapstructure:"restricted_prefixes" yaml:"restricted_prefixes"`
	// OperationTimeout bounds a single host interaction. Zero means no timeout.
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// OverridesConfig configures the override document and the persistence protocol.
type OverridesConfig struct {
	StorageKey   string        `mapstructure:"storage_key" yaml:"storage_key"`
	AutoRefresh  bool          `mapstructure:"auto_refresh" yaml:"auto_refresh"`
	RefreshDelay time.Duration `mapstructure:"refresh_delay" yaml:"refresh_delay"`
}

// ProbeConfig names the globals used to locate the in-page flagging client.
type ProbeConfig struct {
	APIKeyGlobal string `mapstructure:"api_key_global" yaml:"api_key_global"`
	ClientGlobal string `mapstructure:"client_global" yaml:"client_global"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gatectl")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.mode", ModeAttach)
	v.SetDefault("browser.remote_url", "http://127.0.0.1:9222")
	v.SetDefault("browser.target_match", "")
	v.SetDefault("browser.start_url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.fixture_url", "https://fixture.local/")
	v.SetDefault("browser.fixture_script", "")
	v.SetDefault("browser.fixture_state", "")
	v.SetDefault("browser.restricted_prefixes", []string{
		"chrome://", "chrome-extension://", "about:", "edge://", "devtools://",
	})
	v.SetDefault("browser.operation_timeout", "0s")

	// -- Overrides --
	v.SetDefault("overrides.storage_key", "hb_statsig_overrides")
	v.SetDefault("overrides.auto_refresh", true)
	v.SetDefault("overrides.refresh_delay", "250ms")

	// -- Probe --
	v.SetDefault("probe.api_key_global", "statsig_client_api_key")
	v.SetDefault("probe.client_global", "StatsigClient")
}

// EnvPrefix is prepended to every environment override, e.g. GATECTL_BROWSER_MODE.
const EnvPrefix = "GATECTL"

func newEnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// BindEnv makes v resolve GATECTL_* environment variables for every known key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(newEnvKeyReplacer())
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Paths may be written with a leading ~ in the config file.
	var err error
	if cfg.LoggerCfg.LogFile, err = homedir.Expand(cfg.LoggerCfg.LogFile); err != nil {
		return nil, fmt.Errorf("invalid logger.log_file: %w", err)
	}
	if cfg.BrowserCfg.FixtureScript, err = homedir.Expand(cfg.BrowserCfg.FixtureScript); err != nil {
		return nil, fmt.Errorf("invalid browser.fixture_script: %w", err)
	}
	if cfg.BrowserCfg.FixtureState, err = homedir.Expand(cfg.BrowserCfg.FixtureState); err != nil {
		return nil, fmt.Errorf("invalid browser.fixture_state: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.OverridesCfg.Validate(); err != nil {
		return fmt.Errorf("overrides configuration invalid: %w", err)
	}
	if strings.TrimSpace(c.ProbeCfg.APIKeyGlobal) == "" || strings.TrimSpace(c.ProbeCfg.ClientGlobal) == "" {
		return fmt.Errorf("probe.api_key_global and probe.client_global are required")
	}
	return nil
}

// Validate checks the browser configuration for the selected mode.
func (b *BrowserConfig) Validate() error {
	switch b.Mode {
	case ModeAttach:
		if b.RemoteURL == "" {
			return fmt.Errorf("remote_url is required in %q mode", ModeAttach)
		}
	case ModeLaunch:
		if b.StartURL == "" {
			return fmt.Errorf("start_url is required in %q mode", ModeLaunch)
		}
	case ModeFixture:
		if b.FixtureURL == "" {
			return fmt.Errorf("fixture_url is required in %q mode", ModeFixture)
		}
	default:
		return fmt.Errorf("unknown mode %q (expected %s, %s or %s)", b.Mode, ModeAttach, ModeLaunch, ModeFixture)
	}
	if b.OperationTimeout < 0 {
		return fmt.Errorf("operation_timeout must not be negative")
	}
	return nil
}

// Validate checks the overrides configuration.
func (o *OverridesConfig) Validate() error {
	if strings.TrimSpace(o.StorageKey) == "" {
		return fmt.Errorf("storage_key must not be empty")
	}
	if o.RefreshDelay < 0 {
		return fmt.Errorf("refresh_delay must not be negative")
	}
	return nil
}
