// Package headers implements probes that judge the target from the headers
// of a single HEAD request.
package headers

import (
	"context"
	"errors"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/severity"
	"github.com/buemura/baseera/pkg/types"
)

// Probe runs one header Rule against the target URL.
type Probe struct {
	probe.Base
	rule Rule
}

// New wraps rule in a probe whose tier comes from the classifier.
func New(rule Rule) *Probe {
	return &Probe{
		Base: probe.NewBase(rule.TypeID, rule.Name, severity.Classify(rule.TypeID)),
		rule: rule,
	}
}

func NewMissingCSP() *Probe   { return New(MissingCSPRule()) }
func NewWeakCSP() *Probe      { return New(WeakCSPRule()) }
func NewMissingHSTS() *Probe  { return New(MissingHSTSRule()) }
func NewCORS() *Probe         { return New(CORSRule()) }
func NewClickjacking() *Probe { return New(ClickjackingRule()) }

// Scan implements probe.Probe. An unreachable target yields no findings.
func (p *Probe) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	if p.rule.HTTPSOnly && !target.IsHTTPS() {
		return nil, nil
	}

	resp, err := ec.Head(ctx, target.URL)
	if err != nil {
		var capErr *probe.CapabilityError
		if errors.As(err, &capErr) {
			return nil, nil
		}
		return nil, err
	}

	res := p.rule.Check(resp.Header, target)
	if res == nil {
		return nil, nil
	}
	return []types.Finding{
		p.NewFinding(res.Title, res.Description, target.URL, res.Evidence, res.Recommendation),
	}, nil
}
