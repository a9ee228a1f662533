package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buemura/baseera/pkg/types"
)

// ErrUnknownAction is returned by Decode for an action outside the contract.
var ErrUnknownAction = errors.New("unknown action")

// Request is the closed set of messages the service accepts. Only this
// package can add variants.
type Request interface {
	isRequest()
}

// StartScan runs every enabled probe against URL. TargetID optionally names
// an existing execution context (browser tab) already showing the page.
type StartScan struct {
	TargetID string
	URL      string
}

// GetScanResults asks for the findings of the last completed scan.
type GetScanResults struct{}

func (StartScan) isRequest()      {}
func (GetScanResults) isRequest() {}

// Response is the closed set of replies.
type Response interface {
	isResponse()
}

// StartScanResponse reports a finished scan, or why it could not run.
type StartScanResponse struct {
	Success   bool                   `json:"success"`
	SessionID string                 `json:"sessionId,omitempty"`
	Results   []types.Finding        `json:"results"`
	Summary   *types.SeveritySummary `json:"summary,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ScanResultsResponse carries the findings of the last completed scan.
type ScanResultsResponse struct {
	Results []types.Finding `json:"results"`
}

// MarshalJSON omits results from a failed reply and writes an empty list
// for a successful scan without findings.
func (r StartScanResponse) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error,omitempty"`
		}{Error: r.Error})
	}
	type wire StartScanResponse
	w := wire(r)
	if w.Results == nil {
		w.Results = []types.Finding{}
	}
	return json.Marshal(w)
}

func (StartScanResponse) isResponse()   {}
func (ScanResultsResponse) isResponse() {}

const (
	ActionStartScan      = "startScan"
	ActionGetScanResults = "getScanResults"
)

// envelope accepts tabId as an alias of targetId.
type envelope struct {
	Action   string          `json:"action"`
	TargetID json.RawMessage `json:"targetId"`
	TabID    json.RawMessage `json:"tabId"`
	URL      string          `json:"url"`
}

// Decode parses the {"action": ...} wire form into a Request.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}

	switch env.Action {
	case ActionStartScan:
		if strings.TrimSpace(env.URL) == "" {
			return nil, fmt.Errorf("%s: url is required", ActionStartScan)
		}
		id, err := targetID("targetId", env.TargetID)
		if err == nil && id == "" {
			id, err = targetID("tabId", env.TabID)
		}
		if err != nil {
			return nil, err
		}
		return StartScan{TargetID: id, URL: env.URL}, nil
	case ActionGetScanResults:
		return GetScanResults{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
}

// targetID accepts a JSON string or number.
func targetID(key string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding %s: %w", key, err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%s must be a string or number", key)
	}
	return n.String(), nil
}
