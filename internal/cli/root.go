package cli

import (
	"fmt"

	"github.com/buemura/baseera/internal/config"
	"github.com/buemura/baseera/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var (
	targetFlag   string
	outputFlag   string
	configFlag   string
	logLevelFlag string
)

// appConfig holds the loaded configuration, available after PersistentPreRunE.
var appConfig *config.Config

// appLogger is built from appConfig.Log in PersistentPreRunE.
var appLogger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "baseera",
	Short: "Baseera - page vulnerability probe engine",
	Long: `Baseera loads a web page in a browser tab and runs a set of independent
probes against it, each looking for one class of vulnerability, then
reports every finding with its severity tier.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.Config
			err error
		)
		if configFlag != "" {
			cfg, err = config.LoadFromFile(configFlag)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		config.ApplyFlags(cfg, cmd)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		targetFlag = cfg.DefaultTarget
		outputFlag = cfg.OutputFormat

		appConfig = cfg
		appLogger = observability.NewLogger(cfg.Log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = appLogger.Sync()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&targetFlag, "target", "t", "", "page URL to scan")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "table", "output format: table, json, markdown, html")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.baseera.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}
