package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/metrics"
	"github.com/buemura/baseera/internal/service"
	"github.com/buemura/baseera/internal/web/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds a single HTTP request.
const DefaultRequestTimeout = 60 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics exposes rec on /metrics and feeds it job activity.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = rec }
}

// WithCatalog sets the catalog probe listings are joined with.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(s *Server) { s.catalog = cat }
}

// WithRequestTimeout bounds each request. Synchronous scans through
// /api/v1/messages must fit in it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// Server is the HTTP server for the Baseera web API.
type Server struct {
	router         chi.Router
	addr           string
	service        *service.Service
	manager        *jobs.Manager
	catalog        *catalog.Catalog
	metrics        *metrics.Recorder
	logger         *zap.Logger
	requestTimeout time.Duration
	httpServer     *http.Server
}

// NewServer builds a new Server with middleware and routes configured.
func NewServer(addr string, svc *service.Service, opts ...Option) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		addr:           addr,
		service:        svc,
		catalog:        catalog.Default(),
		logger:         zap.NewNop(),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	jobOpts := []jobs.Option{jobs.WithLogger(s.logger)}
	if s.metrics != nil {
		jobOpts = append(jobOpts, jobs.WithActivityRecorder(s.metrics))
	}
	s.manager = jobs.NewManager(svc, jobOpts...)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.requestTimeout))

	s.registerRoutes()

	return s
}

// requestLogger logs each request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// Start begins listening on the configured address. It returns nil once
// Shutdown has been called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and cancels running scan jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	return errors.Join(err, s.manager.Shutdown(ctx))
}

// Router exposes the chi.Router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Manager exposes the job manager for testing.
func (s *Server) Manager() *jobs.Manager {
	return s.manager
}
