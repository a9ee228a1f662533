package cli

import (
	"fmt"

	"github.com/buemura/baseera/internal/browser"
	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/config"
	"github.com/buemura/baseera/internal/metrics"
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/probe/builtin"
	"github.com/buemura/baseera/internal/service"
	"go.uber.org/zap"
)

// newLauncher opens target pages. Tests replace it to avoid Chrome.
var newLauncher = func(cfg *config.Config, logger *zap.Logger) (probe.Launcher, func() error) {
	b := browser.New(browser.Config{
		Headless:          cfg.Browser.Headless,
		ExecPath:          cfg.Browser.ExecPath,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		UserAgent:         cfg.Browser.UserAgent,
		NetworkTimeout:    cfg.Network.Timeout,
		RateLimit:         cfg.Network.RateLimit,
		Burst:             cfg.Network.Burst,
	}, logger.Named("browser"))
	return b, b.Close
}

// buildRegistry returns the built-in probes with cfg's disabled probes
// switched off, validated against the catalog.
func buildRegistry(cfg *config.Config) (*probe.Registry, error) {
	reg, err := builtin.Registry(cfg.Probes.Disabled...)
	if err != nil {
		return nil, fmt.Errorf("building probe registry: %w", err)
	}
	if err := reg.Validate(catalog.Default()); err != nil {
		return nil, fmt.Errorf("validating probe registry: %w", err)
	}
	return reg, nil
}

// buildService wires the scan engine. rec may be nil. The returned function
// releases the browser.
func buildService(cfg *config.Config, logger *zap.Logger, rec *metrics.Recorder) (*service.Service, func() error, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []probe.Option{
		probe.WithLogger(logger.Named("coordinator")),
		probe.WithProbeTimeout(cfg.ProbeTimeout),
	}
	if rec != nil {
		opts = append(opts, probe.WithRecorder(rec))
	}
	coordinator := probe.NewCoordinator(reg, opts...)

	launcher, closeLauncher := newLauncher(cfg, logger)
	svc := service.New(coordinator, launcher,
		service.WithLogger(logger.Named("service")),
		service.WithScanTimeout(cfg.ScanTimeout),
	)
	return svc, closeLauncher, nil
}
