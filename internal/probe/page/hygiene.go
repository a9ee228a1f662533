package page

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
)

// InsecureCookies flags script-readable cookies on https pages, which means
// at least one cookie lacks HttpOnly.
type InsecureCookies struct{ probe.Base }

func NewInsecureCookies() *InsecureCookies {
	return &InsecureCookies{newBase(12, "insecure_cookies")}
}

func (p *InsecureCookies) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var c cookies
	if ok, err := evaluate(ctx, ec, cookieScript, &c); !ok {
		return nil, err
	}
	if c.Cookies == 0 || c.Protocol != "https:" {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Insecure Cookies",
		"Cookies accessible from JavaScript",
		target.URL,
		"Cookies accessible from JavaScript on HTTPS site (missing HttpOnly)",
		"Set HttpOnly and Secure flags on sensitive cookies",
	)}, nil
}

var debugPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)debug\s*=\s*true`),
	regexp.MustCompile(`(?i)console\.log`),
	regexp.MustCompile(`(?i)phpinfo\(`),
	regexp.MustCompile(`(?i)var_dump\(`),
	regexp.MustCompile(`(?i)print_r\(`),
}

// DebugPages flags debug switches and debugging calls left in the markup.
type DebugPages struct{ probe.Base }

func NewDebugPages() *DebugPages { return &DebugPages{newBase(15, "debug_pages")} }

func (p *DebugPages) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var doc document
	if ok, err := evaluate(ctx, ec, documentScript, &doc); !ok {
		return nil, err
	}

	var matched []string
	for _, re := range debugPatterns {
		if n := len(re.FindAllStringIndex(doc.HTML, -1)); n > 0 {
			matched = append(matched, fmt.Sprintf("%s (%d)", strings.TrimPrefix(re.String(), "(?i)"), n))
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Debug Code Detected",
		"Page contains debug code or console statements",
		pageURL(doc.URL, target),
		"Debug patterns found in production code: "+strings.Join(matched, ", "),
		"Remove debug code from production",
	)}, nil
}

// MixedContent flags http sub-resources on an https page.
type MixedContent struct{ probe.Base }

func NewMixedContent() *MixedContent { return &MixedContent{newBase(9, "mixed_content")} }

func (p *MixedContent) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	if !target.IsHTTPS() {
		return nil, nil
	}
	var res resources
	if ok, err := evaluate(ctx, ec, resourcesScript, &res); !ok {
		return nil, err
	}

	var tags []string
	for _, r := range res.Resources {
		if strings.HasPrefix(r.Src, "http://") {
			tags = append(tags, r.Tag)
		}
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Mixed Content Detected",
		fmt.Sprintf("Found %d HTTP resources on HTTPS page", len(tags)),
		target.URL,
		"HTTP resources: "+strings.Join(tags, ", "),
		"Use HTTPS for all resources on HTTPS pages",
	)}, nil
}

// MissingSRI flags cross-origin scripts and stylesheets loaded without an
// integrity attribute.
type MissingSRI struct{ probe.Base }

func NewMissingSRI() *MissingSRI { return &MissingSRI{newBase(13, "missing_sri")} }

func (p *MissingSRI) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var res resources
	if ok, err := evaluate(ctx, ec, resourcesScript, &res); !ok {
		return nil, err
	}
	origin := res.Origin
	if origin == "" {
		origin = target.Origin()
	}

	var missing int
	for _, r := range res.Resources {
		external := !strings.HasPrefix(r.Src, origin)
		subresource := r.Tag == "script" || (r.Tag == "link" && r.Rel == "stylesheet")
		if subresource && external && !r.Integrity {
			missing++
		}
	}
	if missing == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Missing Subresource Integrity",
		fmt.Sprintf("Found %d external resources without SRI", missing),
		target.URL,
		"External resources loaded without integrity checks",
		"Add integrity and crossorigin attributes to external resources",
	)}, nil
}

// DeprecatedHTML flags presentational elements removed from HTML5.
type DeprecatedHTML struct{ probe.Base }

func NewDeprecatedHTML() *DeprecatedHTML { return &DeprecatedHTML{newBase(18, "deprecated_html")} }

func (p *DeprecatedHTML) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var counts map[string]int
	if ok, err := evaluate(ctx, ec, deprecatedScript, &counts); !ok {
		return nil, err
	}

	var found []string
	for _, tag := range deprecatedTags {
		if n := counts[tag]; n > 0 {
			found = append(found, fmt.Sprintf("%s (%d)", tag, n))
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Deprecated HTML Elements",
		"Page contains deprecated HTML elements",
		target.URL,
		strings.Join(found, ", "),
		"Replace deprecated elements with modern HTML5 and CSS",
	)}, nil
}

var trackerHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"facebook.com/tr",
	"doubleclick.net",
	"hotjar.com",
	"mixpanel.com",
	"segment.com",
}

// Trackers flags scripts served by known analytics and advertising hosts.
type Trackers struct{ probe.Base }

func NewTrackers() *Trackers { return &Trackers{newBase(19, "trackers")} }

func (p *Trackers) Scan(ctx context.Context, ec probe.ExecutionContext, target types.Target) ([]types.Finding, error) {
	var res resources
	if ok, err := evaluate(ctx, ec, resourcesScript, &res); !ok {
		return nil, err
	}

	var hits []string
	for _, r := range res.Resources {
		if r.Tag != "script" {
			continue
		}
		for _, host := range trackerHosts {
			if strings.Contains(r.Src, host) {
				hits = append(hits, host)
			}
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return []types.Finding{p.NewFinding(
		"Tracking Scripts Detected",
		fmt.Sprintf("Found %d tracking script(s)", len(hits)),
		target.URL,
		strings.Join(hits, ", "),
		"Review privacy policy and implement user consent for tracking",
	)}, nil
}
