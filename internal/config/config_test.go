package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BASEERA_DEFAULT_TARGET", "BASEERA_OUTPUT_FORMAT", "BASEERA_PROBE_TIMEOUT",
		"BASEERA_SCAN_TIMEOUT", "BASEERA_LOG_LEVEL", "BASEERA_BROWSER_HEADLESS",
		"BASEERA_NETWORK_RATE_LIMIT", "BASEERA_SERVER_ADDR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "", cfg.DefaultTarget)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.Equal(t, 30*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ScanTimeout)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Probes.Disabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "table", cfg.OutputFormat)
	assert.Equal(t, 30*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 10.0, cfg.Network.RateLimit)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, ".baseera.yaml")

	content := `default_target: "https://example.com"
output_format: "json"
probe_timeout: 10s
scan_timeout: 2m
probes:
  disabled: [trackers, deprecated_html]
scan_profiles:
  - name: headers
    probes: [missing_csp, weak_csp, missing_hsts, clickjacking]
browser:
  headless: false
  exec_path: /usr/bin/chromium
network:
  rate_limit: 2.5
  burst: 1
log:
  level: debug
  format: json
  file: /tmp/baseera.log
server:
  addr: "127.0.0.1:9000"
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0644))

	cfg, err := LoadFromFile(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.DefaultTarget)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ScanTimeout)
	assert.Equal(t, []string{"trackers", "deprecated_html"}, cfg.Probes.Disabled)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ExecPath)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 2.5, cfg.Network.RateLimit)
	assert.Equal(t, 1, cfg.Network.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/baseera.log", cfg.Log.File)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)

	require.Len(t, cfg.ScanProfiles, 1)
	assert.Equal(t, []string{"missing_csp", "weak_csp", "missing_hsts", "clickjacking"}, cfg.ScanProfiles[0].Probes)
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/.baseera.yaml")
	assert.Error(t, err)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, ".baseera.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("{{invalid yaml"), 0644))

	_, err := LoadFromFile(cfgFile)
	assert.Error(t, err)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BASEERA_OUTPUT_FORMAT", "markdown")
	t.Setenv("BASEERA_PROBE_TIMEOUT", "3s")
	t.Setenv("BASEERA_LOG_LEVEL", "warn")
	t.Setenv("BASEERA_SERVER_ADDR", ":9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("target", "", "")
	cmd.Flags().String("output", "table", "")
	cmd.Flags().Duration("probe-timeout", 30*time.Second, "")
	cmd.Flags().Duration("timeout", 5*time.Minute, "")
	cmd.Flags().StringSlice("disable", nil, "")
	cmd.Flags().Bool("headless", true, "")
	cmd.Flags().String("log-level", "info", "")
	return cmd
}

func TestApplyFlags(t *testing.T) {
	cfg := Defaults()
	cfg.Probes.Disabled = []string{"trackers"}

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("target", "https://test.com"))
	require.NoError(t, cmd.Flags().Set("probe-timeout", "2s"))
	require.NoError(t, cmd.Flags().Set("disable", "csrf,xss"))
	require.NoError(t, cmd.Flags().Set("headless", "false"))

	ApplyFlags(&cfg, cmd)

	assert.Equal(t, "https://test.com", cfg.DefaultTarget)
	assert.Equal(t, "table", cfg.OutputFormat) // flag not set
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ScanTimeout)
	assert.Equal(t, []string{"trackers", "csrf", "xss"}, cfg.Probes.Disabled)
	assert.False(t, cfg.Browser.Headless)
}

func TestApplyFlags_NoOverrideWhenUnchanged(t *testing.T) {
	cfg := Config{
		DefaultTarget: "https://original.com",
		OutputFormat:  "json",
		ProbeTimeout:  15 * time.Second,
		Log:           LogConfig{Level: "debug"},
	}

	ApplyFlags(&cfg, newFlagCmd())

	assert.Equal(t, "https://original.com", cfg.DefaultTarget)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 15*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.OutputFormat = "xml"
	cfg.ProbeTimeout = -time.Second
	cfg.Log.Format = "logfmt"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_format")
	assert.Contains(t, err.Error(), "probe_timeout")
	assert.Contains(t, err.Error(), "log.format")
}

func TestGetProfile(t *testing.T) {
	cfg := &Config{
		ScanProfiles: []ScanProfile{
			{Name: "headers", Probes: []string{"missing_csp", "weak_csp"}},
			{Name: "page", Probes: []string{"xss", "csrf"}},
		},
	}

	t.Run("found", func(t *testing.T) {
		p := cfg.GetProfile("headers")
		require.NotNil(t, p)
		assert.Equal(t, []string{"missing_csp", "weak_csp"}, p.Probes)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Nil(t, cfg.GetProfile("nonexistent"))
	})
}

func TestConfigFilePath(t *testing.T) {
	assert.Contains(t, ConfigFilePath(), ".baseera.yaml")
}
