package types

import "time"

// Finding is one detected issue. The JSON shape is what the persistence
// service ingests, so field names must not change.
type Finding struct {
	TypeID         int    `json:"typeId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	Evidence       string `json:"evidence"`
	Recommendation string `json:"recommendation"`
}

// ProgressEvent is emitted once per enabled probe after it finishes.
type ProgressEvent struct {
	ProbeName      string `json:"probeName"`
	CompletedCount int    `json:"completedCount"`
	TotalCount     int    `json:"totalCount"`
	Percentage     int    `json:"percentage"`
}

// Report is a completed scan as handed to formatters and transports.
type Report struct {
	SessionID   string          `json:"sessionId"`
	URL         string          `json:"url"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
	Results     []Finding       `json:"results"`
	Summary     SeveritySummary `json:"summary"`
}
