package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/buemura/baseera/internal/metrics"
	"github.com/buemura/baseera/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Baseera HTTP API",
	Long:  "Serves the scan API, the message endpoint, /health and Prometheus /metrics.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "listen address (host:port)")
	serveCmd.Flags().StringSliceVar(&disableFlag, "disable", nil, "probes to skip (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	rec := metrics.New()
	svc, closeLauncher, err := buildService(appConfig, appLogger, rec)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLauncher(); err != nil {
			appLogger.Debug("closing browser", zap.Error(err))
		}
	}()

	s := web.NewServer(appConfig.Server.Addr, svc,
		web.WithLogger(appLogger.Named("web")),
		web.WithMetrics(rec),
		web.WithRequestTimeout(appConfig.ScanTimeout+30*time.Second),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()
	fmt.Fprintf(cmd.OutOrStdout(), "Baseera API listening on %s\n", appConfig.Server.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
