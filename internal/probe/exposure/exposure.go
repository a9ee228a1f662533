// Package exposure implements probes for files and redirects the target
// exposes beyond the page itself.
package exposure

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/severity"
	"github.com/buemura/baseera/pkg/types"
)

// SensitiveFiles issues a HEAD request for each of SensitivePaths on the
// target origin and reports the ones answered with 2xx.
type SensitiveFiles struct {
	probe.Base
	paths []string
}

// NewSensitiveFiles creates the probe. With no paths, SensitivePaths is used.
func NewSensitiveFiles(paths ...string) *SensitiveFiles {
	if len(paths) == 0 {
		paths = SensitivePaths
	}
	return &SensitiveFiles{
		Base:  probe.NewBase(8, "sensitive_files", severity.Classify(8)),
		paths: paths,
	}
}

func (p *SensitiveFiles) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	origin := target.Origin()
	if origin == "" {
		return nil, nil
	}

	var found []string
	for _, path := range p.paths {
		resp, err := ec.Head(ctx, origin+path)
		if err != nil {
			var capErr *probe.CapabilityError
			if errors.As(err, &capErr) {
				continue
			}
			return nil, err
		}
		if resp.OK() {
			found = append(found, path)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Sensitive Files Exposed",
		"Sensitive configuration or backup files accessible",
		target.URL,
		"Found: "+strings.Join(found, ", "),
		"Remove or restrict access to sensitive files",
	)}, nil
}

// OpenRedirect reports redirect parameters in the target URL that carry an
// absolute http(s) URL. It sends no requests.
type OpenRedirect struct{ probe.Base }

func NewOpenRedirect() *OpenRedirect {
	return &OpenRedirect{probe.NewBase(16, "open_redirect", severity.Classify(16))}
}

func (p *OpenRedirect) Scan(_ context.Context, _ probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	u, err := url.Parse(target.URL)
	if err != nil {
		return nil, nil
	}
	q := u.Query()

	var params []string
	for _, name := range RedirectParams {
		v := q.Get(name)
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			params = append(params, name)
		}
	}
	if len(params) == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Potential Open Redirect",
		"URL contains redirect parameters with external URLs",
		target.URL,
		"Parameters: "+strings.Join(params, ", "),
		"Validate redirect URLs against whitelist",
	)}, nil
}
