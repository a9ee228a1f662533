package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/buemura/baseera/internal/output"
	"github.com/buemura/baseera/pkg/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	probeTimeoutFlag time.Duration
	scanTimeoutFlag  time.Duration
	disableFlag      []string
	probesFlag       []string
	profileFlag      string
	headlessFlag     bool
	chromePathFlag   string
	rateLimitFlag    float64
	targetIDFlag     string
	quietFlag        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [url]",
	Short: "Scan a page with every enabled probe",
	Long: `Loads the page in a browser tab, runs the enabled probes against it one
after another and prints the findings. A probe that fails, panics or times
out contributes no findings; the scan carries on.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.DurationVar(&probeTimeoutFlag, "probe-timeout", 30*time.Second, "time limit for a single probe")
	f.DurationVar(&scanTimeoutFlag, "timeout", 5*time.Minute, "time limit for the whole scan, page load included")
	f.StringSliceVar(&disableFlag, "disable", nil, "probes to skip (repeatable)")
	f.StringSliceVar(&probesFlag, "probes", nil, "run only these probes")
	f.StringVar(&profileFlag, "profile", "", "run the probes of a named scan profile from the config")
	f.BoolVar(&headlessFlag, "headless", true, "run Chrome without a window")
	f.StringVar(&chromePathFlag, "chrome-path", "", "Chrome executable (default: auto-detect)")
	f.Float64Var(&rateLimitFlag, "rate-limit", 10, "max header-only requests per second")
	f.StringVar(&targetIDFlag, "target-id", "", "existing browser target to scan instead of opening a tab")
	f.BoolVarP(&quietFlag, "quiet", "q", false, "do not print progress")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	rawURL := targetFlag
	if len(args) == 1 {
		rawURL = args[0]
	}
	if rawURL == "" {
		return errors.New("a target URL is required (argument or --target)")
	}
	if _, err := types.ParseTarget(rawURL); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}

	formatter, err := output.GetFormatter(outputFlag)
	if err != nil {
		return err
	}

	probes := probesFlag
	if profileFlag != "" {
		profile := appConfig.GetProfile(profileFlag)
		if profile == nil {
			return fmt.Errorf("unknown scan profile %q", profileFlag)
		}
		probes = profile.Probes
	}

	svc, closeLauncher, err := buildService(appConfig, appLogger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLauncher(); err != nil {
			appLogger.Debug("closing browser", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress := func(e types.ProgressEvent) {
		if quietFlag {
			return
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %-24s %d/%d\n",
			color.CyanString("[%3d%%]", e.Percentage), e.ProbeName, e.CompletedCount, e.TotalCount)
	}

	session, err := svc.ScanProbes(ctx, targetIDFlag, rawURL, probes, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("scan interrupted")
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(session.Failed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.YellowString("probes that did not complete:"), session.Failed)
	}

	return formatter.Format(cmd.OutOrStdout(), session.Report())
}
