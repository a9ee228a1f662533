package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("job not found")

// ErrClosed is returned by Start once Shutdown has been called.
var ErrClosed = errors.New("job manager is shut down")

// Scanner runs one scan. *service.Service satisfies it.
type Scanner interface {
	ScanProbes(ctx context.Context, targetID, rawURL string, probes []string, progress probe.ProgressFunc) (*probe.Session, error)
}

// ActivityRecorder tracks how many scans are in flight.
type ActivityRecorder interface {
	ScanStarted()
	ScanStopped()
}

type nopActivity struct{}

func (nopActivity) ScanStarted() {}
func (nopActivity) ScanStopped() {}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithActivityRecorder reports scans starting and stopping.
func WithActivityRecorder(r ActivityRecorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.activity = r
		}
	}
}

// Manager manages scan job lifecycle: create, execute, track, store results.
// Each job runs in its own goroutine with its own session.
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	cancels  map[string]context.CancelFunc
	scanner  Scanner
	logger   *zap.Logger
	activity ActivityRecorder
	newID    func() string
	now      func() time.Time
	closed   bool

	wg sync.WaitGroup
}

// NewManager creates a job manager that runs scans through scanner.
func NewManager(scanner Scanner, opts ...Option) *Manager {
	m := &Manager{
		jobs:     make(map[string]*Job),
		cancels:  make(map[string]context.CancelFunc),
		scanner:  scanner,
		logger:   zap.NewNop(),
		activity: nopActivity{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a pending job for req.
func (m *Manager) Create(req Request) Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        m.newID(),
		URL:       req.URL,
		TargetID:  req.TargetID,
		Probes:    req.Probes,
		Status:    StatusPending,
		Results:   []types.Finding{},
		CreatedAt: m.now(),
	}
	m.jobs[job.ID] = job
	return *job
}

// Start launches the job in a background goroutine.
func (m *Manager) Start(jobID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, jobID)
	}
	if job.Status != StatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job %q is already %s", jobID, job.Status)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancels[jobID] = cancel
	job.Status = StatusRunning
	job.StartedAt = m.now()
	req := Request{URL: job.URL, TargetID: job.TargetID, Probes: job.Probes}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.execute(ctx, jobID, req)
	return nil
}

func (m *Manager) execute(ctx context.Context, jobID string, req Request) {
	defer m.wg.Done()
	m.activity.ScanStarted()
	defer m.activity.ScanStopped()

	var (
		session *probe.Session
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		session, err = m.scanner.ScanProbes(ctx, req.TargetID, req.URL, req.Probes, func(e types.ProgressEvent) {
			m.mu.Lock()
			if job, ok := m.jobs[jobID]; ok {
				job.Progress = e
			}
			m.mu.Unlock()
		})
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
		delete(m.cancels, jobID)
	}
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	job.CompletedAt = m.now()

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		job.Status = StatusCancelled
		job.Error = err.Error()
	case err != nil:
		job.Status = StatusFailed
		job.Error = err.Error()
		m.logger.Warn("scan job failed", zap.String("job", jobID), zap.String("url", req.URL), zap.Error(err))
	default:
		report := session.Report()
		job.Status = StatusCompleted
		job.SessionID = session.ID
		job.Results = report.Results
		job.Summary = report.Summary
		job.Failed = session.Failed
		job.report = &report
	}
}

// Get returns a snapshot of the job.
func (m *Manager) Get(jobID string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("%w: %q", ErrNotFound, jobID)
	}
	return *job, nil
}

// List returns snapshots of all jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		result = append(result, *j)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})
	return result
}

// Delete removes a job, cancelling it first if it is still running.
func (m *Manager) Delete(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, jobID)
	}
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
		delete(m.cancels, jobID)
	}
	delete(m.jobs, jobID)
	return nil
}

// Shutdown cancels every running job and waits for them to stop, or for ctx
// to be done. Jobs can no longer be started afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
