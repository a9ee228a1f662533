package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/buemura/baseera/pkg/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultProbeTimeout bounds a single probe invocation.
const DefaultProbeTimeout = 30 * time.Second

// ProgressFunc receives one event per enabled probe, in execution order.
type ProgressFunc func(types.ProgressEvent)

// Outcome classifies how a probe invocation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
	OutcomePanic   Outcome = "panic"
)

// Recorder receives per-probe and per-scan measurements.
type Recorder interface {
	ProbeFinished(name string, outcome Outcome, elapsed time.Duration, findings int)
	ScanFinished(status string, elapsed time.Duration, summary types.SeveritySummary)
}

type nopRecorder struct{}

func (nopRecorder) ProbeFinished(string, Outcome, time.Duration, int)         {}
func (nopRecorder) ScanFinished(string, time.Duration, types.SeveritySummary) {}

// Coordinator runs the enabled probes of a registry sequentially against a
// target. Probes share one execution context, so they are never run
// concurrently.
type Coordinator struct {
	registry     *Registry
	logger       *zap.Logger
	recorder     Recorder
	tracer       trace.Tracer
	probeTimeout time.Duration
	newID        func() string
	now          func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets where probe and scan measurements go.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithProbeTimeout bounds each probe invocation. Zero or negative disables
// the bound.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.probeTimeout = d
	}
}

// NewCoordinator creates a coordinator backed by the given registry.
func NewCoordinator(registry *Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:     registry,
		logger:       zap.NewNop(),
		recorder:     nopRecorder{},
		tracer:       otel.Tracer("github.com/buemura/baseera/internal/probe"),
		probeTimeout: DefaultProbeTimeout,
		newID:        uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the coordinator runs.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// WithRegistry returns a copy of the coordinator that runs registry instead.
func (c *Coordinator) WithRegistry(registry *Registry) *Coordinator {
	clone := *c
	clone.registry = registry
	return &clone
}

// RunScan runs every enabled probe against target in registration order and
// returns the completed session.
//
// Probe failures, panics and timeouts are isolated: the probe contributes no
// findings and the scan continues. RunScan only fails when the execution
// context is unusable (*TopLevelInvocationError) or ctx is cancelled; in
// both cases no session is returned.
func (c *Coordinator) RunScan(ctx context.Context, target types.Target, ec ExecutionContext, progress ProgressFunc) (*Session, error) {
	probes := c.registry.Enabled()
	session := &Session{
		ID:        c.newID(),
		Target:    target,
		StartedAt: c.now(),
		Results:   []types.Finding{},
	}
	log := c.logger.With(zap.String("session", session.ID), zap.String("url", target.URL))

	if len(probes) == 0 {
		session.CompletedAt = session.StartedAt
		log.Debug("no enabled probes; scan is empty")
		return session, nil
	}

	ctx, span := c.tracer.Start(ctx, "probe.RunScan", trace.WithAttributes(
		attribute.String("scan.session", session.ID),
		attribute.String("scan.url", target.URL),
		attribute.Int("scan.probes", len(probes)),
	))
	defer span.End()

	if err := c.checkReady(ctx, target, ec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution context unusable")
		c.recorder.ScanFinished("failed", c.now().Sub(session.StartedAt), types.SeveritySummary{})
		log.Warn("scan could not start", zap.Error(err))
		return nil, err
	}

	log.Info("scan started", zap.Int("probes", len(probes)))

	total := len(probes)
	for i, p := range probes {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			c.recorder.ScanFinished("cancelled", c.now().Sub(session.StartedAt), types.SeveritySummary{})
			log.Warn("scan cancelled", zap.Int("completed", i), zap.Int("total", total), zap.Error(err))
			return nil, fmt.Errorf("scan cancelled after %d of %d probes: %w", i, total, err)
		}

		findings := c.runProbe(ctx, log, p, ec, target, session)
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			c.recorder.ScanFinished("cancelled", c.now().Sub(session.StartedAt), types.SeveritySummary{})
			log.Warn("scan cancelled", zap.Int("completed", i), zap.Int("total", total), zap.Error(err))
			return nil, fmt.Errorf("scan cancelled after %d of %d probes: %w", i, total, err)
		}
		session.Results = append(session.Results, findings...)

		event := types.ProgressEvent{
			ProbeName:      p.Descriptor().Name,
			CompletedCount: i + 1,
			TotalCount:     total,
			Percentage:     percentage(i+1, total),
		}
		session.Progress = &event
		if progress != nil {
			progress(event)
		}
	}

	session.CompletedAt = c.now()
	summary := session.Summary()
	c.recorder.ScanFinished("completed", session.CompletedAt.Sub(session.StartedAt), summary)
	span.SetAttributes(attribute.Int("scan.findings", summary.Total))
	log.Info("scan completed",
		zap.Int("findings", summary.Total),
		zap.Int("failed_probes", len(session.Failed)),
		zap.Duration("elapsed", session.CompletedAt.Sub(session.StartedAt)),
	)
	return session, nil
}

func (c *Coordinator) checkReady(ctx context.Context, target types.Target, ec ExecutionContext) error {
	if ec == nil {
		return &TopLevelInvocationError{URL: target.URL, Err: ErrNoExecutionContext}
	}
	if err := ec.Ready(ctx, target); err != nil {
		var tl *TopLevelInvocationError
		if errors.As(err, &tl) {
			return err
		}
		return &TopLevelInvocationError{URL: target.URL, Err: err}
	}
	return nil
}

// runProbe invokes one probe and returns the findings it contributes, which
// are none if it failed.
func (c *Coordinator) runProbe(ctx context.Context, log *zap.Logger, p Probe, ec ExecutionContext, target types.Target, session *Session) []types.Finding {
	d := p.Descriptor()
	ctx, span := c.tracer.Start(ctx, "probe.Scan", trace.WithAttributes(
		attribute.String("probe.name", d.Name),
		attribute.Int("probe.type_id", d.TypeID),
	))
	defer span.End()

	start := c.now()
	findings, outcome, err := c.invoke(ctx, p, ec, target)
	elapsed := c.now().Sub(start)

	if err != nil {
		perr := &ProbeExecutionError{Probe: d.Name, TypeID: d.TypeID, Err: err}
		span.RecordError(perr)
		span.SetStatus(codes.Error, string(outcome))
		session.Failed = append(session.Failed, d.Name)
		c.recorder.ProbeFinished(d.Name, outcome, elapsed, 0)
		log.Warn("probe failed", zap.String("probe", d.Name), zap.String("outcome", string(outcome)), zap.Error(perr))
		return nil
	}

	kept := findings[:0:0]
	for _, f := range findings {
		if f.TypeID != d.TypeID {
			log.Warn("dropping finding with foreign type id",
				zap.String("probe", d.Name), zap.Int("want", d.TypeID), zap.Int("got", f.TypeID))
			continue
		}
		kept = append(kept, f)
	}

	span.SetAttributes(attribute.Int("probe.findings", len(kept)))
	c.recorder.ProbeFinished(d.Name, OutcomeSuccess, elapsed, len(kept))
	log.Debug("probe finished", zap.String("probe", d.Name), zap.Int("findings", len(kept)), zap.Duration("elapsed", elapsed))
	return kept
}

type probeResult struct {
	findings []types.Finding
	err      error
	panicked bool
}

// invoke calls p.Scan on its own goroutine so that a panic or an overrun of
// the time budget can be contained. The result channel is buffered; a probe
// that ignores cancellation finishes in the background and its late result
// is dropped. Such a probe may still be using ec while the next probe runs,
// so exclusive access to ec only holds for probes that honour ctx.
func (c *Coordinator) invoke(ctx context.Context, p Probe, ec ExecutionContext, target types.Target) ([]types.Finding, Outcome, error) {
	pctx := ctx
	cancel := context.CancelFunc(func() {})
	if c.probeTimeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, c.probeTimeout)
	}
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- probeResult{err: fmt.Errorf("%w: %v", ErrProbePanic, r), panicked: true}
			}
		}()
		findings, err := p.Scan(pctx, ec, target)
		done <- probeResult{findings: findings, err: err}
	}()

	select {
	case res := <-done:
		return classify(res, pctx)
	case <-pctx.Done():
		// Prefer a result that raced with the deadline.
		select {
		case res := <-done:
			return classify(res, pctx)
		default:
		}
		if ctx.Err() != nil {
			return nil, OutcomeFailure, ctx.Err()
		}
		return nil, OutcomeTimeout, fmt.Errorf("%w after %s", ErrProbeTimeout, c.probeTimeout)
	}
}

func classify(res probeResult, pctx context.Context) ([]types.Finding, Outcome, error) {
	switch {
	case res.panicked:
		return nil, OutcomePanic, res.err
	case res.err != nil && errors.Is(pctx.Err(), context.DeadlineExceeded):
		return nil, OutcomeTimeout, fmt.Errorf("%w: %v", ErrProbeTimeout, res.err)
	case res.err != nil:
		return nil, OutcomeFailure, res.err
	}
	return res.findings, OutcomeSuccess, nil
}

func percentage(completed, total int) int {
	return int(math.Round(float64(completed) / float64(total) * 100))
}
