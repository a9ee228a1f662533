package views

import (
	"context"
	"errors"
	"testing"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	events []types.ProgressEvent
	err    error
}

func (f fakeScanner) Scan(_ context.Context, _, rawURL string, progress probe.ProgressFunc) (*probe.Session, error) {
	for _, e := range f.events {
		progress(e)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &probe.Session{ID: "s1", Target: types.Target{URL: rawURL}}, nil
}

func testTarget() types.Target {
	return types.Target{URL: "https://example.com", Host: "example.com", Scheme: "https"}
}

func TestScanModelDeliversProgressThenCompletion(t *testing.T) {
	events := []types.ProgressEvent{
		{ProbeName: "xss", CompletedCount: 1, TotalCount: 2, Percentage: 50},
		{ProbeName: "sql_injection", CompletedCount: 2, TotalCount: 2, Percentage: 100},
	}
	m := NewScanModel(fakeScanner{events: events}, testTarget(), 2)

	go m.runScan()()

	msg := m.waitForEvent()()
	require.IsType(t, ProgressMsg{}, msg)
	updated, cmd := m.Update(msg)
	m = updated.(ScanModel)
	require.NotNil(t, cmd)
	assert.Equal(t, 50, m.Last().Percentage)
	assert.Contains(t, m.View(), "last: xss")

	updated, cmd = m.Update(cmd())
	m = updated.(ScanModel)
	assert.Equal(t, 100, m.Last().Percentage)

	msg = cmd()
	complete, ok := msg.(ScanCompleteMsg)
	require.True(t, ok)
	assert.Equal(t, "s1", complete.Session.ID)

	updated, _ = m.Update(msg)
	m = updated.(ScanModel)
	assert.True(t, m.Done())
}

func TestScanModelError(t *testing.T) {
	m := NewScanModel(fakeScanner{err: errors.New("page crashed")}, testTarget(), 1)

	go m.runScan()()

	msg := m.waitForEvent()()
	require.IsType(t, ScanErrorMsg{}, msg)
	updated, _ := m.Update(msg)
	m = updated.(ScanModel)
	assert.True(t, m.Done())
	assert.Contains(t, m.View(), "Scan failed: page crashed")
}

func TestScanModelCancelUnblocksWaiters(t *testing.T) {
	m := NewScanModel(fakeScanner{}, testTarget(), 1)
	m.Cancel()
	assert.Nil(t, m.waitForEvent()())
}

func TestScanModelInitialView(t *testing.T) {
	m := NewScanModel(fakeScanner{}, testTarget(), 3)
	view := m.View()
	assert.Contains(t, view, "https://example.com")
	assert.Contains(t, view, "0/3")
	assert.NotNil(t, m.Init())
	m.Cancel()
}
