package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig describes the disposable-mail backend.
type ServerConfig struct {
	// BaseURL is the root URL of the backend (e.g., https://mail.example.com).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a whole HTTP exchange, including body read.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// RefreshConfig holds the polling cadence.
type RefreshConfig struct {
	CountdownSec    int `mapstructure:"countdown_sec" yaml:"countdown_sec"`
	IntervalSec     int `mapstructure:"interval_sec" yaml:"interval_sec"`
	DrainSpacingMs  int `mapstructure:"drain_spacing_ms" yaml:"drain_spacing_ms"`
	DrainCap        int `mapstructure:"drain_cap" yaml:"drain_cap"`
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
}

// MailboxConfig controls how the first mailbox of a session is chosen.
type MailboxConfig struct {
	// ResumePinned reuses the mailbox pinned in the system keyring, if any,
	// instead of generating a new one on startup.
	ResumePinned bool `mapstructure:"resume_pinned" yaml:"resume_pinned"`
}

// HistoryConfig locates the SQLite database of previously used addresses.
type HistoryConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ExportConfig controls where exported .eml and .mbox files are written.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LogConfig controls the log file. The TUI owns the terminal, so logs never
// go to stdout.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Refresh RefreshConfig `mapstructure:"refresh" yaml:"refresh"`
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/tempmail, falling back to the working
// directory when no home directory is available.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tempmail")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tempmail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:    "http://localhost:80",
			TimeoutSec: 15,
		},
		Refresh: RefreshConfig{
			CountdownSec:    5,
			IntervalSec:     5,
			DrainSpacingMs:  500,
			DrainCap:        50,
			FetchTimeoutSec: 10,
		},
		History: HistoryConfig{Path: filepath.Join(dir, "history.db")},
		Export:  ExportConfig{Dir: "."},
		Log: LogConfig{
			Path:  filepath.Join(dir, "tempmail.log"),
			Level: "info",
		},
	}
}

// setDefaults mirrors DefaultAppConfig into v so that missing keys resolve
// to sensible values and TEMPMAIL_* variables can override every key.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	v.SetDefault("refresh.countdown_sec", d.Refresh.CountdownSec)
	v.SetDefault("refresh.interval_sec", d.Refresh.IntervalSec)
	v.SetDefault("refresh.drain_spacing_ms", d.Refresh.DrainSpacingMs)
	v.SetDefault("refresh.drain_cap", d.Refresh.DrainCap)
	v.SetDefault("refresh.fetch_timeout_sec", d.Refresh.FetchTimeoutSec)
	v.SetDefault("mailbox.resume_pinned", d.Mailbox.ResumePinned)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
}

// NewViper returns a Viper instance preconfigured with defaults and
// environment overrides, reading from path. Callers may bind CLI flags to
// it before calling LoadConfigFrom.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TEMPMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) apply.
func LoadConfig(path string) (*AppConfig, error) {
	return LoadConfigFrom(NewViper(path))
}

// LoadConfigFrom reads and decodes the configuration held by v.
func LoadConfigFrom(v *viper.Viper) (*AppConfig, error) {
	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", v.ConfigFileUsed(), err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces non-positive cadence values with defaults.
func (c *AppConfig) normalize() {
	d := DefaultAppConfig()
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.TimeoutSec <= 0 {
		c.Server.TimeoutSec = d.Server.TimeoutSec
	}
	if c.Refresh.CountdownSec <= 0 {
		c.Refresh.CountdownSec = d.Refresh.CountdownSec
	}
	if c.Refresh.IntervalSec <= 0 {
		c.Refresh.IntervalSec = d.Refresh.IntervalSec
	}
	if c.Refresh.DrainSpacingMs <= 0 {
		c.Refresh.DrainSpacingMs = d.Refresh.DrainSpacingMs
	}
	if c.Refresh.DrainCap <= 0 {
		c.Refresh.DrainCap = d.Refresh.DrainCap
	}
	if c.Refresh.FetchTimeoutSec <= 0 {
		c.Refresh.FetchTimeoutSec = d.Refresh.FetchTimeoutSec
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("refresh", cfg.Refresh)
	v.Set("mailbox", cfg.Mailbox)
	v.Set("history", cfg.History)
	v.Set("export", cfg.Export)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// RequestTimeout returns the HTTP client timeout.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
