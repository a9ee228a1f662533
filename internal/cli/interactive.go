package cli

import (
	"github.com/buemura/baseera/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Launch interactive TUI mode",
	Long:  "Start an interactive terminal UI for choosing probes and scanning a page.",
	RunE:  runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	svc, closeLauncher, err := buildService(appConfig, appLogger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLauncher(); err != nil {
			appLogger.Debug("closing browser", zap.Error(err))
		}
	}()

	return tui.Run(svc, targetFlag)
}
