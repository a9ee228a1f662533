package page

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
)

// XSS flags inline scripts, inline event handlers and query parameters that
// are echoed back into the document.
type XSS struct{ probe.Base }

func NewXSS() *XSS { return &XSS{newBase(1, "xss")} }

const xssRecommendation = "Sanitize all user inputs, use Content Security Policy, and avoid inline scripts"

func (p *XSS) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var doc document
	if ok, err := evaluate(ctx, ec, documentScript, &doc); !ok {
		return nil, err
	}
	loc := pageURL(doc.URL, target)

	var findings []types.Finding
	add := func(kind, evidence string) {
		findings = append(findings, p.NewFinding(
			"Potential XSS Vulnerability",
			"Cross-Site Scripting vulnerability detected: "+kind,
			loc, evidence, xssRecommendation,
		))
	}

	if doc.InlineScripts > 0 {
		add("inline_scripts", fmt.Sprintf("Found %d inline script(s)", doc.InlineScripts))
	}
	if doc.EventHandlers > 0 {
		add("event_handlers", fmt.Sprintf("Found %d inline event handler(s)", doc.EventHandlers))
	}

	var reflected []string
	for _, prm := range queryParams(loc) {
		if len(prm.value) > 3 && strings.Contains(doc.HTML, prm.value) {
			reflected = append(reflected, prm.key)
		}
	}
	if len(reflected) > 0 {
		add("reflected_params", "URL parameters reflected in page: "+strings.Join(reflected, ", "))
	}
	return findings, nil
}

var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER)\b`),
	regexp.MustCompile(`(?i)\bUNION\b.*\bSELECT\b`),
	regexp.MustCompile(`(?i)\bOR\b.*=`),
	regexp.MustCompile(`'|"|--|;`),
}

// SQLInjection flags SQL fragments in query parameters and forms that take
// named input without a hidden token.
type SQLInjection struct{ probe.Base }

func NewSQLInjection() *SQLInjection { return &SQLInjection{newBase(2, "sql_injection")} }

func (p *SQLInjection) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var loc string
	if ok, err := evaluate(ctx, ec, locationScript, &loc); !ok {
		return nil, err
	}
	var forms []form
	if ok, err := evaluate(ctx, ec, formsScript, &forms); !ok {
		return nil, err
	}

	var findings []types.Finding
	add := func(location, evidence string) {
		findings = append(findings, p.NewFinding(
			"Potential SQL Injection",
			"SQL Injection vulnerability may exist in this form or parameter",
			location, evidence,
			"Use parameterized queries, input validation, and prepared statements",
		))
	}

	for _, prm := range queryParams(pageURL(loc, target)) {
		for _, re := range sqlPatterns {
			if re.MatchString(prm.value) {
				add("URL parameter: "+prm.key, "Suspicious SQL pattern in parameter value: "+prm.value)
			}
		}
	}
	for i, f := range forms {
		if f.NamedInputs > 0 && !f.HasHiddenToken {
			add(fmt.Sprintf("Form %d (action: %s)", i+1, formAction(f, "current page")),
				"Form may be vulnerable to SQL injection - missing CSRF protection")
		}
	}
	return findings, nil
}

var cmdPatterns = []*regexp.Regexp{
	regexp.MustCompile("\\||&|;|`|\\$\\(|\\$\\{"),
	regexp.MustCompile(`\.\./|\.\.\\`),
	regexp.MustCompile(`(?i)\b(cat|ls|whoami|pwd)\b`),
}

// CommandInjection flags shell metacharacters, path traversal and common
// shell commands in query parameters.
type CommandInjection struct{ probe.Base }

func NewCommandInjection() *CommandInjection {
	return &CommandInjection{newBase(3, "command_injection")}
}

func (p *CommandInjection) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var loc string
	if ok, err := evaluate(ctx, ec, locationScript, &loc); !ok {
		return nil, err
	}

	var findings []types.Finding
	for _, prm := range queryParams(pageURL(loc, target)) {
		for _, re := range cmdPatterns {
			if re.MatchString(prm.value) {
				findings = append(findings, p.NewFinding(
					"Potential Command Injection",
					"Command injection vulnerability may exist",
					"URL parameter: "+prm.key,
					"Suspicious command injection pattern in URL parameter",
					"Validate and sanitize all inputs, avoid shell command execution",
				))
			}
		}
	}
	return findings, nil
}

type keyPattern struct {
	name string
	re   *regexp.Regexp
}

var apiKeyPatterns = []keyPattern{
	{"AWS", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"Google API", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{"Firebase", regexp.MustCompile(`(?i)firebase[0-9A-Za-z\-_]{20,}`)},
	{"Stripe", regexp.MustCompile(`(sk|pk)_(test|live)_[0-9a-zA-Z]{24}`)},
	{"GitHub", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36}`)},
	{"Generic API Key", regexp.MustCompile(`(?i)api[_-]?key\s*[:=]\s*['"]([^'"]{20,})['"]`)},
}

// APIKeys flags credentials embedded in the document or in web storage.
type APIKeys struct{ probe.Base }

func NewAPIKeys() *APIKeys { return &APIKeys{newBase(4, "api_keys")} }

const apiKeysRecommendation = "Store API keys securely on the server side, never in client code"

func (p *APIKeys) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var doc document
	if ok, err := evaluate(ctx, ec, documentScript, &doc); !ok {
		return nil, err
	}

	var findings []types.Finding
	for _, kp := range apiKeyPatterns {
		if n := len(kp.re.FindAllString(doc.HTML, -1)); n > 0 {
			findings = append(findings, p.NewFinding(
				"Exposed API Keys",
				kp.name+" key(s) exposed in client-side code",
				"Client-side code",
				fmt.Sprintf("Found %d %s key(s) exposed in client code", n, kp.name),
				apiKeysRecommendation,
			))
		}
	}

	// Storage may be unavailable (sandboxed frames, opaque origins); that
	// only loses the storage half of the check.
	var storage map[string]string
	ok, err := evaluate(ctx, ec, storageScript, &storage)
	if err != nil {
		return nil, err
	}
	if !ok {
		return findings, nil
	}
	keys := make([]string, 0, len(storage))
	for k := range storage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, kp := range apiKeyPatterns {
			if kp.re.MatchString(storage[k]) {
				findings = append(findings, p.NewFinding(
					"Exposed API Keys",
					kp.name+" key(s) exposed in client-side code",
					"Storage key: "+k,
					kp.name+" key found in browser storage",
					apiKeysRecommendation,
				))
			}
		}
	}
	return findings, nil
}

func formAction(f form, fallback string) string {
	if f.Action == "" {
		return fallback
	}
	return f.Action
}
