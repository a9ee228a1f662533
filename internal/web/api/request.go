package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/buemura/baseera/pkg/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// CreateScanRequest is the JSON body for POST /api/v1/scans.
type CreateScanRequest struct {
	URL      string   `json:"url"`
	TargetID string   `json:"target_id"`
	Probes   []string `json:"probes"`
}

// decodeCreateScanRequest reads and validates the request body.
func decodeCreateScanRequest(w http.ResponseWriter, r *http.Request) (*CreateScanRequest, error) {
	var req CreateScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if req.URL == "" {
		return nil, errors.New("url is required")
	}
	if _, err := types.ParseTarget(req.URL); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if len(req.Probes) == 1 && req.Probes[0] == "all" {
		req.Probes = nil
	}

	return &req, nil
}
