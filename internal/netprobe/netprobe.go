// Package netprobe provides the header-only network capability: HEAD
// requests confined to the scanned origin and throttled by a token bucket.
package netprobe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buemura/baseera/internal/probe"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrCrossOrigin is returned for requests outside the scanned origin.
var ErrCrossOrigin = errors.New("request leaves the scanned origin")

const (
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 10.0
	DefaultBurst     = 2
	DefaultUserAgent = "baseera/1.0"
)

// Client is a probe.NetworkProbe bound to one origin.
type Client struct {
	origin    string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit sets requests per second and burst. A non-positive rps
// disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, burst)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// New creates a client that only talks to the origin of rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	origin, err := originOf(rawURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		origin: origin,
		http: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Origin returns the origin the client is bound to.
func (c *Client) Origin() string { return c.origin }

// Head issues a HEAD request and returns the status and headers. Redirects
// are not followed. Failures other than cancellation are returned as
// *probe.CapabilityError.
func (c *Client) Head(ctx context.Context, rawURL string) (*probe.HeadResponse, error) {
	origin, err := originOf(rawURL)
	if err != nil {
		return nil, capErr(err)
	}
	if origin != c.origin {
		return nil, capErr(fmt.Errorf("%w: %s is not %s", ErrCrossOrigin, origin, c.origin))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, capErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, capErr(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("HEAD failed", zap.String("url", rawURL), zap.Error(err))
		return nil, capErr(fmt.Errorf("HTTP HEAD %s: %w", rawURL, err))
	}
	defer resp.Body.Close()

	c.logger.Debug("HEAD",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &probe.HeadResponse{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}, nil
}

func capErr(err error) error {
	return &probe.CapabilityError{Capability: "network", Op: "head", Err: err}
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, nil
}
