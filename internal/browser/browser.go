// Package browser drives headless Chrome over the DevTools protocol and
// exposes each loaded page as a probe.Tab.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/buemura/baseera/internal/netprobe"
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrClosed is returned by Open after Close.
var ErrClosed = errors.New("browser closed")

// Config controls the Chrome process and the per-tab network capability.
type Config struct {
	Headless          bool
	ExecPath          string
	NavigationTimeout time.Duration
	UserAgent         string

	NetworkTimeout time.Duration
	RateLimit      float64
	Burst          int
}

// DefaultConfig returns a headless configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		UserAgent:         netprobe.DefaultUserAgent,
		NetworkTimeout:    netprobe.DefaultTimeout,
		RateLimit:         netprobe.DefaultRateLimit,
		Burst:             netprobe.DefaultBurst,
	}
}

// Browser owns one Chrome process. It is safe for concurrent use; each Open
// gets its own tab.
type Browser struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	rootCtx     context.Context
	rootCancel  context.CancelFunc
	attached    map[target.ID]attachedTab
	closed      bool
}

// attachedTab is a tab the browser did not open itself. Cancelling its
// context would close the target, so it is kept until Close.
type attachedTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Browser. Chrome is started on the first Open.
func New(cfg Config, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultConfig().NavigationTimeout
	}
	return &Browser{cfg: cfg, logger: logger, attached: make(map[target.ID]attachedTab)}
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}
	if b.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.cfg.UserAgent))
	}
	return opts
}

// root starts Chrome if needed and returns the browser-level context.
func (b *Browser) root() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.rootCtx != nil {
		return b.rootCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	rootCtx, rootCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(b.logger.Sugar().Debugf),
		chromedp.WithErrorf(b.logger.Sugar().Warnf),
	)
	if err := chromedp.Run(rootCtx); err != nil {
		rootCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	b.allocCtx, b.allocCancel = allocCtx, allocCancel
	b.rootCtx, b.rootCancel = rootCtx, rootCancel
	b.logger.Info("chrome started", zap.Bool("headless", b.cfg.Headless))
	return rootCtx, nil
}

// Open loads the target in a new tab, or attaches to the existing tab named
// by target.ID. An attached tab is left open when its Page is closed.
// Failures are *probe.TopLevelInvocationError.
func (b *Browser) Open(ctx context.Context, t types.Target) (probe.Tab, error) {
	rootCtx, err := b.root()
	if err != nil {
		return nil, &probe.TopLevelInvocationError{URL: t.URL, Err: err}
	}

	net, err := netprobe.New(t.URL,
		netprobe.WithTimeout(b.cfg.NetworkTimeout),
		netprobe.WithRateLimit(b.cfg.RateLimit, b.cfg.Burst),
		netprobe.WithUserAgent(b.cfg.UserAgent),
		netprobe.WithLogger(b.logger),
	)
	if err != nil {
		return nil, &probe.TopLevelInvocationError{URL: t.URL, Err: err}
	}

	logger := b.logger.With(zap.String("url", t.URL))
	if t.ID != "" {
		tabCtx, err := b.attach(rootCtx, target.ID(t.ID))
		if err != nil {
			return nil, &probe.TopLevelInvocationError{URL: t.URL, Err: err}
		}
		return &Page{ctx: tabCtx, net: net, logger: logger, attached: true}, nil
	}

	tabCtx, cancel := chromedp.NewContext(rootCtx)
	p := &Page{ctx: tabCtx, cancel: cancel, net: net, logger: logger}
	if err := p.navigate(ctx, t.URL, b.cfg.NavigationTimeout); err != nil {
		p.Close()
		return nil, &probe.TopLevelInvocationError{URL: t.URL, Err: err}
	}
	return p, nil
}

// attach returns the context of an existing target, reusing a previous
// attachment to the same target.
func (b *Browser) attach(rootCtx context.Context, id target.ID) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if tab, ok := b.attached[id]; ok && tab.ctx.Err() == nil {
		return tab.ctx, nil
	}

	tabCtx, cancel := chromedp.NewContext(rootCtx, chromedp.WithTargetID(id))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("attaching to target %s: %w", id, err)
	}
	b.attached[id] = attachedTab{ctx: tabCtx, cancel: cancel}
	return tabCtx, nil
}

// Close shuts Chrome down. Open tabs become unusable.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, tab := range b.attached {
		tab.cancel()
		delete(b.attached, id)
	}
	if b.rootCancel != nil {
		b.rootCancel()
		b.allocCancel()
	}
	return nil
}

// Page is one tab. It implements probe.Tab.
type Page struct {
	ctx      context.Context
	cancel   context.CancelFunc
	net      *netprobe.Client
	logger   *zap.Logger
	attached bool
}

// run executes actions on the tab, bounded by the caller's ctx as well as
// the tab's own lifetime.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Page) navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.run(navCtx, chromedp.Navigate(rawURL), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigating to %s: %w", rawURL, err)
	}
	return nil
}

// Evaluate implements probe.PageInspector.
func (p *Page) Evaluate(ctx context.Context, script string, out any) error {
	var res json.RawMessage
	err := p.run(ctx, chromedp.Evaluate(script, &res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return &probe.CapabilityError{Capability: "page", Op: "evaluate", Err: err}
	}
	return decode(res, out)
}

// Head implements probe.NetworkProbe.
func (p *Page) Head(ctx context.Context, rawURL string) (*probe.HeadResponse, error) {
	return p.net.Head(ctx, rawURL)
}

// Ready implements probe.ExecutionContext. The page is usable once its
// document has finished parsing.
func (p *Page) Ready(ctx context.Context, t types.Target) error {
	var state string
	if err := p.Evaluate(ctx, `document.readyState`, &state); err != nil {
		return &probe.TopLevelInvocationError{URL: t.URL, Err: err}
	}
	if state != "interactive" && state != "complete" {
		return &probe.TopLevelInvocationError{URL: t.URL, Err: fmt.Errorf("document is %q", state)}
	}
	return nil
}

// Close releases the tab. A tab opened by Open is closed; an attached tab
// stays open in the browser.
func (p *Page) Close() error {
	if p.attached || p.cancel == nil {
		return nil
	}
	p.cancel()
	return nil
}

func decode(res json.RawMessage, out any) error {
	if out == nil || len(res) == 0 {
		return nil
	}
	if err := json.Unmarshal(res, out); err != nil {
		return &probe.CapabilityError{
			Capability: "page",
			Op:         "evaluate",
			Err:        fmt.Errorf("decoding result: %w (payload: %.120s)", err, res),
		}
	}
	return nil
}
