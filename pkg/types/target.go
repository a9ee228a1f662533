package types

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is the page to scan.
type Target struct {
	// ID optionally names the execution context (browser tab) the page is
	// loaded in. Empty means a fresh context is opened for the scan.
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Host   string `json:"host"`
	Scheme string `json:"scheme"`
}

// ParseTarget accepts a hostname or an http(s) URL and normalizes it into a
// Target. Bare hostnames default to https.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("target cannot be empty")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Target{}, fmt.Errorf("unsupported scheme %q (only http and https pages can be scanned)", u.Scheme)
	}

	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("URL %q has no hostname", raw)
	}

	if port := u.Port(); port != "" {
		var n int
		if _, err := fmt.Sscanf(port, "%d", &n); err != nil || n < 1 || n > 65535 {
			return Target{}, fmt.Errorf("port %s out of range (1-65535)", port)
		}
	}

	u.Scheme = scheme
	return Target{
		URL:    u.String(),
		Host:   u.Hostname(),
		Scheme: scheme,
	}, nil
}

// IsHTTPS reports whether the page is served over TLS.
func (t Target) IsHTTPS() bool {
	return t.Scheme == "https"
}

// Origin returns scheme://host[:port] of the target URL, or "" if the URL
// cannot be parsed.
func (t Target) Origin() string {
	u, err := url.Parse(t.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Query returns the decoded query parameters of the target URL.
func (t Target) Query() url.Values {
	u, err := url.Parse(t.URL)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}
