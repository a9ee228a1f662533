package headers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/buemura/baseera/internal/probe/probetest"
	"github.com/buemura/baseera/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://example.com/"

func scan(t *testing.T, p *Probe, header http.Header) []types.Finding {
	t.Helper()
	ec := probetest.New().OnHead(pageURL, http.StatusOK, header)
	findings, err := p.Scan(context.Background(), ec, probetest.Target(pageURL))
	require.NoError(t, err)
	return findings
}

func TestRules_UniqueTypeIDs(t *testing.T) {
	seen := map[int]bool{}
	for _, r := range Rules() {
		assert.False(t, seen[r.TypeID], "type id %d used twice", r.TypeID)
		seen[r.TypeID] = true
	}
}

func TestMissingCSP(t *testing.T) {
	findings := scan(t, NewMissingCSP(), nil)
	require.Len(t, findings, 1)
	assert.Equal(t, 6, findings[0].TypeID)
	assert.Equal(t, pageURL, findings[0].Location)

	assert.Empty(t, scan(t, NewMissingCSP(), http.Header{"Content-Security-Policy": {"default-src 'self'"}}))
}

func TestWeakCSP(t *testing.T) {
	tests := []struct {
		name     string
		policy   string
		evidence string
	}{
		{"strict", "default-src 'self'", ""},
		{"inline", "script-src 'self' 'unsafe-inline'", "Weak directives found: unsafe-inline directive"},
		{"everything", "default-src * 'unsafe-inline' 'unsafe-eval' data:", "Weak directives found: unsafe-inline directive, unsafe-eval directive, wildcard (*) source, data: URI scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := scan(t, NewWeakCSP(), http.Header{"Content-Security-Policy": {tt.policy}})
			if tt.evidence == "" {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, tt.evidence, findings[0].Evidence)
		})
	}

	assert.Empty(t, scan(t, NewWeakCSP(), nil), "absent policy is missing_csp's concern")
}

func TestMissingHSTS(t *testing.T) {
	require.Len(t, scan(t, NewMissingHSTS(), nil), 1)
	assert.Empty(t, scan(t, NewMissingHSTS(), http.Header{"Strict-Transport-Security": {"max-age=31536000"}}))
}

func TestMissingHSTS_SkipsPlainHTTP(t *testing.T) {
	ec := probetest.New()
	findings, err := NewMissingHSTS().Scan(context.Background(), ec, probetest.Target("http://example.com/"))
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Empty(t, ec.Requested())
}

func TestCORS(t *testing.T) {
	require.Len(t, scan(t, NewCORS(), http.Header{"Access-Control-Allow-Origin": {"*"}}), 1)
	assert.Empty(t, scan(t, NewCORS(), http.Header{"Access-Control-Allow-Origin": {"https://app.example.com"}}))
	assert.Empty(t, scan(t, NewCORS(), nil))
}

func TestClickjacking(t *testing.T) {
	require.Len(t, scan(t, NewClickjacking(), nil), 1)
	assert.Empty(t, scan(t, NewClickjacking(), http.Header{"X-Frame-Options": {"DENY"}}))
	assert.Empty(t, scan(t, NewClickjacking(), http.Header{"Content-Security-Policy": {"frame-ancestors 'none'"}}))
}

func TestProbe_UnreachableTargetHasNoFindings(t *testing.T) {
	ec := probetest.New().FailHead(pageURL, errors.New("connection refused"))
	findings, err := NewMissingCSP().Scan(context.Background(), ec, probetest.Target(pageURL))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestProbe_CancelledContextIsAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMissingCSP().Scan(ctx, probetest.New(), probetest.Target(pageURL))
	assert.ErrorIs(t, err, context.Canceled)
}
