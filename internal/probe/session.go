package probe

import (
	"time"

	"github.com/buemura/baseera/internal/severity"
	"github.com/buemura/baseera/pkg/types"
)

// Session is the state of one scan. The coordinator creates it, appends to
// it while probes run and never touches it again once RunScan returns.
type Session struct {
	ID          string
	Target      types.Target
	StartedAt   time.Time
	CompletedAt time.Time
	// Results is ordered by probe execution order, then by each probe's own
	// emission order.
	Results  []types.Finding
	Progress *types.ProgressEvent
	// Failed names the probes whose findings were discarded.
	Failed []string
}

// Summary counts the session's findings per tier.
func (s *Session) Summary() types.SeveritySummary {
	return severity.Summarize(s.Results)
}

// Report converts the session into its transport form.
func (s *Session) Report() types.Report {
	results := s.Results
	if results == nil {
		results = []types.Finding{}
	}
	return types.Report{
		SessionID:   s.ID,
		URL:         s.Target.URL,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		Results:     results,
		Summary:     s.Summary(),
	}
}
