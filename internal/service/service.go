// Package service exposes the scan engine through a closed request/response
// message contract.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
	"go.uber.org/zap"
)

// Service answers Requests. It keeps only the last completed session.
type Service struct {
	coordinator *probe.Coordinator
	launcher    probe.Launcher
	logger      *zap.Logger
	scanTimeout time.Duration

	mu   sync.RWMutex
	last *probe.Session
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScanTimeout bounds a whole StartScan, page load included.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Service) { s.scanTimeout = d }
}

// New creates a Service that opens targets with launcher.
func New(coordinator *probe.Coordinator, launcher probe.Launcher, opts ...Option) *Service {
	s := &Service{
		coordinator: coordinator,
		launcher:    launcher,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle dispatches req. progress, which may be nil, receives the progress
// events of a StartScan.
func (s *Service) Handle(ctx context.Context, req Request, progress probe.ProgressFunc) (Response, error) {
	switch r := req.(type) {
	case StartScan:
		return s.startScan(ctx, r, progress), nil
	case GetScanResults:
		return s.results(), nil
	case nil:
		return nil, errors.New("nil request")
	default:
		return nil, fmt.Errorf("unhandled request type %T", req)
	}
}

// Registry returns the registry of probes the service runs.
func (s *Service) Registry() *probe.Registry {
	return s.coordinator.Registry()
}

// Last returns the last completed session, or nil.
func (s *Service) Last() *probe.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Service) startScan(ctx context.Context, req StartScan, progress probe.ProgressFunc) StartScanResponse {
	session, err := s.Scan(ctx, req.TargetID, req.URL, progress)
	if err != nil {
		return StartScanResponse{Success: false, Error: err.Error()}
	}
	summary := session.Summary()
	return StartScanResponse{
		Success:   true,
		SessionID: session.ID,
		Results:   session.Results,
		Summary:   &summary,
	}
}

// Scan opens rawURL, runs the coordinator against it and records the
// session as the last completed one.
func (s *Service) Scan(ctx context.Context, targetID, rawURL string, progress probe.ProgressFunc) (*probe.Session, error) {
	return s.ScanProbes(ctx, targetID, rawURL, nil, progress)
}

// ScanProbes is Scan restricted to the named probes. An empty list runs
// every enabled probe.
func (s *Service) ScanProbes(ctx context.Context, targetID, rawURL string, probes []string, progress probe.ProgressFunc) (*probe.Session, error) {
	target, err := types.ParseTarget(rawURL)
	if err != nil {
		return nil, &probe.TopLevelInvocationError{URL: rawURL, Err: err}
	}
	target.ID = targetID

	coordinator := s.coordinator
	if len(probes) > 0 {
		sub, err := coordinator.Registry().Subset(probes)
		if err != nil {
			return nil, err
		}
		coordinator = coordinator.WithRegistry(sub)
	}

	if s.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scanTimeout)
		defer cancel()
	}

	tab, err := s.launcher.Open(ctx, target)
	if err != nil {
		s.logger.Warn("cannot open target", zap.String("url", target.URL), zap.Error(err))
		if probe.IsTopLevel(err) {
			return nil, err
		}
		return nil, &probe.TopLevelInvocationError{URL: target.URL, Err: err}
	}
	defer func() {
		if err := tab.Close(); err != nil {
			s.logger.Debug("closing tab", zap.Error(err))
		}
	}()

	session, err := coordinator.RunScan(ctx, target, tab, progress)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = session
	s.mu.Unlock()
	return session, nil
}

func (s *Service) results() ScanResultsResponse {
	last := s.Last()
	if last == nil {
		return ScanResultsResponse{Results: []types.Finding{}}
	}
	return ScanResultsResponse{Results: last.Results}
}
