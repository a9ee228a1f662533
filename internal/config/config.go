// Package config provides configuration loading for baseera.
// It supports a layered configuration approach with priority:
// CLI flags > environment variables (BASEERA_*) > config file (~/.baseera.yaml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ScanProfile names a set of probes to run together.
type ScanProfile struct {
	Name   string   `mapstructure:"name" yaml:"name"`
	Probes []string `mapstructure:"probes" yaml:"probes"`
}

// ProbesConfig gates built-in probes.
type ProbesConfig struct {
	Disabled []string `mapstructure:"disabled" yaml:"disabled"`
}

// BrowserConfig controls the Chrome process that loads target pages.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// NetworkConfig controls header-only requests made by probes.
type NetworkConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int           `mapstructure:"burst" yaml:"burst"`
}

// LogConfig controls the logger. File enables a rotated JSON log.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Config holds all baseera configuration options.
type Config struct {
	DefaultTarget string        `mapstructure:"default_target" yaml:"default_target"`
	OutputFormat  string        `mapstructure:"output_format" yaml:"output_format"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	ScanTimeout   time.Duration `mapstructure:"scan_timeout" yaml:"scan_timeout"`
	Probes        ProbesConfig  `mapstructure:"probes" yaml:"probes"`
	ScanProfiles  []ScanProfile `mapstructure:"scan_profiles" yaml:"scan_profiles"`
	Browser       BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network       NetworkConfig `mapstructure:"network" yaml:"network"`
	Log           LogConfig     `mapstructure:"log" yaml:"log"`
	Server        ServerConfig  `mapstructure:"server" yaml:"server"`
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		OutputFormat: "table",
		ProbeTimeout: 30 * time.Second,
		ScanTimeout:  5 * time.Minute,
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			UserAgent:         "baseera/1.0",
		},
		Network: NetworkConfig{
			Timeout:   5 * time.Second,
			RateLimit: 10,
			Burst:     2,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

var validFormats = []string{"table", "json", "markdown", "html"}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error
	if !contains(validFormats, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output_format %q: must be one of %s", c.OutputFormat, strings.Join(validFormats, ", ")))
	}
	if c.ProbeTimeout < 0 {
		errs = append(errs, fmt.Errorf("probe_timeout must not be negative"))
	}
	if c.ScanTimeout < 0 {
		errs = append(errs, fmt.Errorf("scan_timeout must not be negative"))
	}
	if c.Network.Burst < 0 {
		errs = append(errs, fmt.Errorf("network.burst must not be negative"))
	}
	if f := c.Log.Format; f != "console" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q: must be console or json", f))
	}
	return errors.Join(errs...)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BASEERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from ~/.baseera.yaml and environment variables.
// It does NOT apply CLI flag overrides; call ApplyFlags for that.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName(".baseera")
	v.SetConfigType("yaml")

	home, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return decode(v)
}

// ApplyFlags overrides config values with any CLI flags that were explicitly set.
func ApplyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("target") {
		val, _ := flags.GetString("target")
		cfg.DefaultTarget = val
	}
	if flags.Changed("output") {
		val, _ := flags.GetString("output")
		cfg.OutputFormat = val
	}
	if flags.Changed("probe-timeout") {
		val, _ := flags.GetDuration("probe-timeout")
		cfg.ProbeTimeout = val
	}
	if flags.Changed("timeout") {
		val, _ := flags.GetDuration("timeout")
		cfg.ScanTimeout = val
	}
	if flags.Changed("disable") {
		val, _ := flags.GetStringSlice("disable")
		cfg.Probes.Disabled = append(cfg.Probes.Disabled, val...)
	}
	if flags.Changed("headless") {
		val, _ := flags.GetBool("headless")
		cfg.Browser.Headless = val
	}
	if flags.Changed("chrome-path") {
		val, _ := flags.GetString("chrome-path")
		cfg.Browser.ExecPath = val
	}
	if flags.Changed("rate-limit") {
		val, _ := flags.GetFloat64("rate-limit")
		cfg.Network.RateLimit = val
	}
	if flags.Changed("log-level") {
		val, _ := flags.GetString("log-level")
		cfg.Log.Level = val
	}
	if flags.Changed("addr") {
		val, _ := flags.GetString("addr")
		cfg.Server.Addr = val
	}
}

// GetProfile returns the scan profile with the given name, or nil if not found.
func (c *Config) GetProfile(name string) *ScanProfile {
	for i := range c.ScanProfiles {
		if c.ScanProfiles[i].Name == name {
			return &c.ScanProfiles[i]
		}
	}
	return nil
}

// ConfigFilePath returns the default config file path (~/.baseera.yaml).
func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".baseera.yaml"
	}
	return filepath.Join(home, ".baseera.yaml")
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("default_target", d.DefaultTarget)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("probe_timeout", d.ProbeTimeout)
	v.SetDefault("scan_timeout", d.ScanTimeout)
	v.SetDefault("probes.disabled", []string{})
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.exec_path", d.Browser.ExecPath)
	v.SetDefault("browser.navigation_timeout", d.Browser.NavigationTimeout)
	v.SetDefault("browser.user_agent", d.Browser.UserAgent)
	v.SetDefault("network.timeout", d.Network.Timeout)
	v.SetDefault("network.rate_limit", d.Network.RateLimit)
	v.SetDefault("network.burst", d.Network.Burst)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("server.addr", d.Server.Addr)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
