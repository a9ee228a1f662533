package jobs

import (
	"time"

	"github.com/buemura/baseera/pkg/types"
)

// JobStatus represents the current state of a scan job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Request describes the scan a job runs.
type Request struct {
	URL      string
	TargetID string
	// Probes restricts the scan to the named probes. Empty runs every
	// enabled probe.
	Probes []string
}

// Job is an async scan job. Values handed out by the Manager are snapshots.
type Job struct {
	ID          string                `json:"id"`
	URL         string                `json:"url"`
	TargetID    string                `json:"target_id,omitempty"`
	Probes      []string              `json:"probes,omitempty"`
	Status      JobStatus             `json:"status"`
	SessionID   string                `json:"session_id,omitempty"`
	Results     []types.Finding       `json:"results"`
	Summary     types.SeveritySummary `json:"summary"`
	Failed      []string              `json:"failed_probes,omitempty"`
	Error       string                `json:"error,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	StartedAt   time.Time             `json:"started_at,omitempty"`
	CompletedAt time.Time             `json:"completed_at,omitempty"`
	Progress    types.ProgressEvent   `json:"progress"`

	report *types.Report
}

// Done reports whether the job has stopped running.
func (j Job) Done() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// FindingCount returns the number of findings the job produced.
func (j Job) FindingCount() int {
	return len(j.Results)
}

// Report returns the completed scan report, or false while the job has no
// completed session.
func (j Job) Report() (types.Report, bool) {
	if j.report == nil {
		return types.Report{}, false
	}
	return *j.report, true
}
