package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/config"
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/probe/probetest"
	"github.com/buemura/baseera/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// resetFlags puts every flag back to its default so runs do not leak into
// each other.
func resetFlags() {
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if sv, ok := f.Value.(pflag.SliceValue); ok {
					_ = sv.Replace(nil)
				} else {
					_ = f.Value.Set(f.DefValue)
				}
				f.Changed = false
			})
		}
	}
}

func executeCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func useLauncher(t *testing.T, l probe.Launcher) {
	t.Helper()
	old := newLauncher
	newLauncher = func(*config.Config, *zap.Logger) (probe.Launcher, func() error) {
		return l, func() error { return nil }
	}
	t.Cleanup(func() { newLauncher = old })
}

func exampleTab() *probetest.Context {
	return probetest.New().OnHead("https://example.com", http.StatusOK, http.Header{"X-Frame-Options": {"DENY"}})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baseera.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "baseera version")
}

func TestRootHelpListsCommands(t *testing.T) {
	out, _, err := executeCmd(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"scan", "probes", "catalog", "serve", "interactive", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestScanMissingTarget(t *testing.T) {
	_, _, err := executeCmd(t, "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target URL is required")
}

func TestScanInvalidTarget(t *testing.T) {
	_, _, err := executeCmd(t, "scan", "ftp://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target")
}

func TestScanInvalidOutputFormat(t *testing.T) {
	_, _, err := executeCmd(t, "scan", "https://example.com", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_format")
}

func TestScanJSONOutput(t *testing.T) {
	launcher := &probetest.Launcher{Tab: exampleTab()}
	useLauncher(t, launcher)

	out, errOut, err := executeCmd(t, "scan", "https://example.com", "-o", "json")
	require.NoError(t, err)

	var report types.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "https://example.com", report.URL)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 6, report.Results[0].TypeID)
	assert.Equal(t, 10, report.Results[1].TypeID)
	assert.Equal(t, types.SeveritySummary{Total: 2, High: 1, Medium: 1}, report.Summary)

	assert.Contains(t, errOut, "100%")
	assert.Contains(t, errOut, "19/19")
	assert.Len(t, launcher.Opened(), 1)
}

func TestScanTargetFlag(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Tab: exampleTab()})

	out, _, err := executeCmd(t, "scan", "-t", "https://example.com", "-o", "markdown", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "2 findings")
}

func TestScanProbesFlag(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Tab: probetest.New()})

	out, errOut, err := executeCmd(t, "scan", "https://example.com", "--probes", "clickjacking", "-o", "json")
	require.NoError(t, err)

	var report types.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 1)
	assert.Equal(t, 11, report.Results[0].TypeID)
	assert.Contains(t, errOut, "1/1")
}

func TestScanDisableFlag(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Tab: exampleTab()})

	out, _, err := executeCmd(t, "scan", "https://example.com", "--disable", "missing_hsts", "-o", "json", "-q")
	require.NoError(t, err)

	var report types.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 1)
	assert.Equal(t, 6, report.Results[0].TypeID)
}

func TestScanDisableUnknownProbe(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Tab: exampleTab()})

	_, _, err := executeCmd(t, "scan", "https://example.com", "--disable", "port_scan")
	require.Error(t, err)
	assert.ErrorIs(t, err, probe.ErrProbeNotFound)
}

func TestScanProfile(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Tab: probetest.New()})
	path := writeConfig(t, `
scan_profiles:
  - name: headers
    probes: [missing_hsts, clickjacking]
`)

	out, _, err := executeCmd(t, "scan", "https://example.com", "--config", path, "--profile", "headers", "-o", "json", "-q")
	require.NoError(t, err)

	var report types.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 2)
	assert.Equal(t, 10, report.Results[0].TypeID)
	assert.Equal(t, 11, report.Results[1].TypeID)
}

func TestScanUnknownProfile(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Tab: probetest.New()})

	_, _, err := executeCmd(t, "scan", "https://example.com", "--profile", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown scan profile "nope"`)
}

func TestScanLaunchFailure(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Err: errors.New("chrome not found")})

	_, _, err := executeCmd(t, "scan", "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")

	var top *probe.TopLevelInvocationError
	assert.ErrorAs(t, err, &top)
}

func TestProbesCommand(t *testing.T) {
	out, _, err := executeCmd(t, "probes")
	require.NoError(t, err)
	assert.Contains(t, out, "xss")
	assert.Contains(t, out, "clickjacking")
	assert.Contains(t, out, "Cross-Site Scripting (XSS)")
}

func TestProbesCommandJSONWithDisabled(t *testing.T) {
	out, _, err := executeCmd(t, "probes", "--disable", "xss", "-o", "json")
	require.NoError(t, err)

	var descs []probe.Descriptor
	require.NoError(t, json.Unmarshal([]byte(out), &descs))
	require.Len(t, descs, 19)
	assert.Equal(t, "xss", descs[0].Name)
	assert.False(t, descs[0].Enabled)
	assert.True(t, descs[1].Enabled)
}

func TestCatalogCommandJSON(t *testing.T) {
	out, _, err := executeCmd(t, "catalog", "-o", "json")
	require.NoError(t, err)

	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 20)
	assert.Equal(t, 1, entries[0].ID)
	assert.Equal(t, types.SeverityLow, entries[19].Severity)
}

func TestCatalogCommandTable(t *testing.T) {
	out, _, err := executeCmd(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "CWE-79")
	assert.Contains(t, out, "Clickjacking Vulnerability")
}

func TestConfigFileSetsOutputFormat(t *testing.T) {
	useLauncher(t, &probetest.Launcher{Tab: exampleTab()})
	path := writeConfig(t, "output_format: json\n")

	out, _, err := executeCmd(t, "scan", "https://example.com", "--config", path, "-q")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}
