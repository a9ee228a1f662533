package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/probe/headers"
	"github.com/buemura/baseera/internal/probe/probetest"
	"github.com/buemura/baseera/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://example.com/"

func newService(t *testing.T, launcher probe.Launcher) *Service {
	t.Helper()
	r := probe.NewRegistry()
	r.MustRegister(headers.NewMissingCSP(), headers.NewMissingHSTS(), headers.NewClickjacking())
	return New(probe.NewCoordinator(r), launcher)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Request
	}{
		{"start with numeric tab", `{"action":"startScan","tabId":42,"url":"https://example.com"}`, StartScan{TargetID: "42", URL: "https://example.com"}},
		{"start with string tab", `{"action":"startScan","tabId":"ABC","url":"https://example.com"}`, StartScan{TargetID: "ABC", URL: "https://example.com"}},
		{"start with target id", `{"action":"startScan","targetId":"T1","url":"https://example.com"}`, StartScan{TargetID: "T1", URL: "https://example.com"}},
		{"start with numeric target id", `{"action":"startScan","targetId":7,"url":"https://example.com"}`, StartScan{TargetID: "7", URL: "https://example.com"}},
		{"target id wins over tab", `{"action":"startScan","targetId":"T1","tabId":42,"url":"https://example.com"}`, StartScan{TargetID: "T1", URL: "https://example.com"}},
		{"start without tab", `{"action":"startScan","url":"https://example.com"}`, StartScan{URL: "https://example.com"}},
		{"results", `{"action":"getScanResults"}`, GetScanResults{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"action":"deleteEverything"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Decode([]byte(`{"action":"startScan"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"action":"startScan","url":"https://a","tabId":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"action":"startScan","url":"https://a","targetId":[1]}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestHandle_StartScan(t *testing.T) {
	tab := probetest.New().OnHead("https://example.com", http.StatusOK, http.Header{"X-Frame-Options": {"DENY"}})
	launcher := &probetest.Launcher{Tab: tab}
	svc := newService(t, launcher)

	var events []types.ProgressEvent
	resp, err := svc.Handle(context.Background(), StartScan{TargetID: "7", URL: "example.com"}, func(e types.ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	start, ok := resp.(StartScanResponse)
	require.True(t, ok)
	assert.True(t, start.Success)
	assert.NotEmpty(t, start.SessionID)
	assert.Len(t, start.Results, 2)
	require.NotNil(t, start.Summary)
	assert.Equal(t, types.SeveritySummary{Total: 2, High: 1, Medium: 1}, *start.Summary)
	assert.Len(t, events, 3)

	opened := launcher.Opened()
	require.Len(t, opened, 1)
	assert.Equal(t, "7", opened[0].ID)
	assert.Equal(t, "https://example.com", opened[0].URL)
	assert.Equal(t, 1, tab.Closed())
}

func TestHandle_StartScanUnusableTarget(t *testing.T) {
	tab := probetest.New().NotReady(errors.New("page crashed"))
	svc := newService(t, &probetest.Launcher{Tab: tab})

	resp, err := svc.Handle(context.Background(), StartScan{URL: pageURL}, nil)
	require.NoError(t, err)

	start := resp.(StartScanResponse)
	assert.False(t, start.Success)
	assert.Contains(t, start.Error, "page crashed")
	assert.Nil(t, start.Results)
	assert.Nil(t, svc.Last())
	assert.Equal(t, 1, tab.Closed())
}

func TestHandle_StartScanLaunchFailure(t *testing.T) {
	svc := newService(t, &probetest.Launcher{Err: errors.New("chrome not found")})

	resp, err := svc.Handle(context.Background(), StartScan{URL: pageURL}, nil)
	require.NoError(t, err)
	start := resp.(StartScanResponse)
	assert.False(t, start.Success)
	assert.Contains(t, start.Error, "chrome not found")
}

func TestHandle_StartScanInvalidURL(t *testing.T) {
	launcher := &probetest.Launcher{Tab: probetest.New()}
	svc := newService(t, launcher)

	resp, err := svc.Handle(context.Background(), StartScan{URL: "ftp://example.com"}, nil)
	require.NoError(t, err)
	assert.False(t, resp.(StartScanResponse).Success)
	assert.Empty(t, launcher.Opened())
}

func TestHandle_GetScanResults(t *testing.T) {
	svc := newService(t, &probetest.Launcher{Tab: probetest.New()})

	resp, err := svc.Handle(context.Background(), GetScanResults{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ScanResultsResponse{Results: []types.Finding{}}, resp)

	_, err = svc.Handle(context.Background(), StartScan{URL: pageURL}, nil)
	require.NoError(t, err)

	resp, err = svc.Handle(context.Background(), GetScanResults{}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.(ScanResultsResponse).Results, 3)
}

func TestHandle_FailedScanKeepsPreviousResults(t *testing.T) {
	tab := probetest.New()
	launcher := &probetest.Launcher{Tab: tab}
	svc := newService(t, launcher)

	_, err := svc.Handle(context.Background(), StartScan{URL: pageURL}, nil)
	require.NoError(t, err)
	first := svc.Last()
	require.NotNil(t, first)

	launcher.Err = errors.New("gone")
	_, err = svc.Handle(context.Background(), StartScan{URL: pageURL}, nil)
	require.NoError(t, err)
	assert.Same(t, first, svc.Last())
}

func TestScanProbes_RunsOnlyNamedProbes(t *testing.T) {
	svc := newService(t, &probetest.Launcher{Tab: probetest.New()})

	var events []types.ProgressEvent
	session, err := svc.ScanProbes(context.Background(), "", pageURL, []string{"clickjacking"}, func(e types.ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.Len(t, session.Results, 1)
	assert.Equal(t, 11, session.Results[0].TypeID)
	require.Len(t, events, 1)
	assert.Equal(t, 100, events[0].Percentage)
	assert.Same(t, session, svc.Last())

	_, err = svc.ScanProbes(context.Background(), "", pageURL, []string{"nope"}, nil)
	assert.ErrorIs(t, err, probe.ErrProbeNotFound)
}

func TestHandle_NilRequest(t *testing.T) {
	svc := newService(t, &probetest.Launcher{Tab: probetest.New()})
	_, err := svc.Handle(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestStartScanResponse_WireShape(t *testing.T) {
	data, err := json.Marshal(StartScanResponse{Success: false, Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, string(data))

	summary := types.SeveritySummary{}
	data, err = json.Marshal(StartScanResponse{Success: true, SessionID: "s1", Summary: &summary})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"sessionId":"s1","results":[],"summary":{"total":0,"critical":0,"high":0,"medium":0,"low":0}}`, string(data))
}
