package headers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/buemura/baseera/pkg/types"
)

// Rule is a single response-header check.
type Rule struct {
	TypeID int
	Name   string
	// HTTPSOnly rules are skipped for plain http targets without a request.
	HTTPSOnly bool
	Check     func(h http.Header, target types.Target) *Result
}

// Result is what a rule reports when it fires. Location defaults to the
// target URL.
type Result struct {
	Title          string
	Description    string
	Evidence       string
	Recommendation string
}

var weakCSPPatterns = []struct {
	re    *regexp.Regexp
	issue string
}{
	{regexp.MustCompile(`(?i)unsafe-inline`), "unsafe-inline directive"},
	{regexp.MustCompile(`(?i)unsafe-eval`), "unsafe-eval directive"},
	{regexp.MustCompile(`\*`), "wildcard (*) source"},
	{regexp.MustCompile(`(?i)data:`), "data: URI scheme"},
}

// Rules returns every header rule, in registration order.
func Rules() []Rule {
	return []Rule{
		MissingCSPRule(),
		WeakCSPRule(),
		MissingHSTSRule(),
		CORSRule(),
		ClickjackingRule(),
	}
}

// MissingCSPRule fires when no Content-Security-Policy header is sent.
func MissingCSPRule() Rule {
	return Rule{
		TypeID: 6,
		Name:   "missing_csp",
		Check: func(h http.Header, _ types.Target) *Result {
			if h.Get("Content-Security-Policy") != "" {
				return nil
			}
			return &Result{
				Title:          "Missing Content Security Policy",
				Description:    "Page does not have a Content-Security-Policy header",
				Evidence:       "No CSP header found",
				Recommendation: "Implement a strict Content-Security-Policy to prevent XSS attacks",
			}
		},
	}
}

// WeakCSPRule fires when the policy allows inline code, eval, wildcard
// sources or data: URIs.
func WeakCSPRule() Rule {
	return Rule{
		TypeID: 7,
		Name:   "weak_csp",
		Check: func(h http.Header, _ types.Target) *Result {
			csp := h.Get("Content-Security-Policy")
			if csp == "" {
				return nil
			}
			var issues []string
			for _, p := range weakCSPPatterns {
				if p.re.MatchString(csp) {
					issues = append(issues, p.issue)
				}
			}
			if len(issues) == 0 {
				return nil
			}
			return &Result{
				Title:          "Weak Content Security Policy",
				Description:    "CSP contains unsafe directives",
				Evidence:       "Weak directives found: " + strings.Join(issues, ", "),
				Recommendation: "Remove unsafe directives and use nonces or hashes",
			}
		},
	}
}

// MissingHSTSRule fires for https targets without Strict-Transport-Security.
func MissingHSTSRule() Rule {
	return Rule{
		TypeID:    10,
		Name:      "missing_hsts",
		HTTPSOnly: true,
		Check: func(h http.Header, _ types.Target) *Result {
			if h.Get("Strict-Transport-Security") != "" {
				return nil
			}
			return &Result{
				Title:          "Missing HSTS Header",
				Description:    "HTTPS site missing Strict-Transport-Security header",
				Evidence:       "No HSTS header found on HTTPS site",
				Recommendation: "Add Strict-Transport-Security header with max-age",
			}
		},
	}
}

// CORSRule fires when Access-Control-Allow-Origin is the wildcard.
func CORSRule() Rule {
	return Rule{
		TypeID: 14,
		Name:   "cors_misconfiguration",
		Check: func(h http.Header, _ types.Target) *Result {
			if strings.TrimSpace(h.Get("Access-Control-Allow-Origin")) != "*" {
				return nil
			}
			return &Result{
				Title:          "CORS Misconfiguration",
				Description:    "Access-Control-Allow-Origin set to wildcard (*)",
				Evidence:       "CORS allows requests from any origin",
				Recommendation: "Restrict CORS to specific trusted origins",
			}
		},
	}
}

// ClickjackingRule fires when neither X-Frame-Options nor a CSP
// frame-ancestors directive is present.
func ClickjackingRule() Rule {
	return Rule{
		TypeID: 11,
		Name:   "clickjacking",
		Check: func(h http.Header, _ types.Target) *Result {
			if h.Get("X-Frame-Options") != "" {
				return nil
			}
			if strings.Contains(strings.ToLower(h.Get("Content-Security-Policy")), "frame-ancestors") {
				return nil
			}
			return &Result{
				Title:          "Missing Clickjacking Protection",
				Description:    "Page lacks X-Frame-Options or CSP frame-ancestors directive",
				Evidence:       "No clickjacking protection headers found",
				Recommendation: "Add X-Frame-Options: DENY or SAMEORIGIN header",
			}
		},
	}
}
