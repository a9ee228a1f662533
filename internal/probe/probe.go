// Package probe defines the probe contract and runs registered probes
// against a target, one after another, isolating each probe's failures.
package probe

import (
	"context"
	"net/http"

	"github.com/buemura/baseera/pkg/types"
)

// Descriptor is the static identity of a probe.
type Descriptor struct {
	// TypeID joins the probe to the vulnerability catalog. Unique per registry.
	TypeID   int            `json:"typeId"`
	Name     string         `json:"name"`
	Severity types.Severity `json:"severity"`
	Enabled  bool           `json:"enabled"`
}

// Probe detects instances of one vulnerability category.
//
// Scan may return an empty slice. Every returned finding must carry the
// probe's own TypeID. Probes must not mutate the page and may only issue
// header-only requests through the NetworkProbe capability.
type Probe interface {
	Descriptor() Descriptor
	Scan(ctx context.Context, ec ExecutionContext, target types.Target) ([]types.Finding, error)
}

// PageInspector runs an inspection script against the loaded page.
type PageInspector interface {
	// Evaluate runs script in the page and JSON-decodes its result into out.
	Evaluate(ctx context.Context, script string, out any) error
}

// HeadResponse is the outcome of a header-only request.
type HeadResponse struct {
	URL        string
	StatusCode int
	Header     http.Header
}

// OK reports a 2xx status.
func (r *HeadResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// NetworkProbe issues header-only requests.
type NetworkProbe interface {
	Head(ctx context.Context, rawURL string) (*HeadResponse, error)
}

// ExecutionContext is the capability set a probe uses to examine a target.
type ExecutionContext interface {
	PageInspector
	NetworkProbe
	// Ready reports whether the target page is loaded and scriptable.
	Ready(ctx context.Context, target types.Target) error
}

// Base carries a probe's descriptor and builds findings stamped with its
// TypeID. Probe implementations embed it.
type Base struct {
	desc Descriptor
}

// NewBase creates an enabled Base.
func NewBase(typeID int, name string, sev types.Severity) Base {
	return Base{desc: Descriptor{TypeID: typeID, Name: name, Severity: sev, Enabled: true}}
}

// Descriptor returns the probe's descriptor.
func (b Base) Descriptor() Descriptor { return b.desc }

// NewFinding builds a finding owned by this probe.
func (b Base) NewFinding(title, description, location, evidence, recommendation string) types.Finding {
	return types.Finding{
		TypeID:         b.desc.TypeID,
		Title:          title,
		Description:    description,
		Location:       location,
		Evidence:       evidence,
		Recommendation: recommendation,
	}
}

// Tab is an execution context that must be released after the scan.
type Tab interface {
	ExecutionContext
	Close() error
}

// Launcher opens a Tab with the target loaded.
type Launcher interface {
	Open(ctx context.Context, target types.Target) (Tab, error)
}
