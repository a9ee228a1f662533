package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
)

// InsecureForms flags forms that submit over plain http.
type InsecureForms struct{ probe.Base }

func NewInsecureForms() *InsecureForms { return &InsecureForms{newBase(5, "insecure_forms")} }

func (p *InsecureForms) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var forms []form
	if ok, err := evaluate(ctx, ec, formsScript, &forms); !ok {
		return nil, err
	}

	var findings []types.Finding
	for i, f := range forms {
		action := formAction(f, target.URL)
		if !strings.HasPrefix(action, "http://") {
			continue
		}
		evidence := "Form submits to HTTP endpoint"
		if f.HasPassword || f.HasEmail {
			evidence += " with sensitive data"
		}
		findings = append(findings, p.NewFinding(
			"Insecure Form Submission",
			fmt.Sprintf("Form %d submits data over insecure HTTP connection", i+1),
			action, evidence,
			"Always use HTTPS for form submissions, especially with sensitive data",
		))
	}
	return findings, nil
}

// CSRF flags POST forms that carry no anti-forgery token field.
type CSRF struct{ probe.Base }

func NewCSRF() *CSRF { return &CSRF{newBase(17, "csrf")} }

func (p *CSRF) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var forms []form
	if ok, err := evaluate(ctx, ec, formsScript, &forms); !ok {
		return nil, err
	}

	var unprotected int
	for _, f := range forms {
		if strings.EqualFold(f.Method, "post") && !f.HasCSRFToken {
			unprotected++
		}
	}
	if unprotected == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Missing CSRF Protection",
		fmt.Sprintf("Found %d form(s) without CSRF tokens", unprotected),
		target.URL,
		"POST forms without CSRF protection detected",
		"Implement CSRF tokens for all state-changing operations",
	)}, nil
}
