package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"goalforge/internal/config"
	"goalforge/internal/gateway"
	"goalforge/internal/refine"
	"goalforge/internal/telemetry"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Loaded configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "goalforge",
	Short: "goalforge - turn vague intentions into SMART goals",
	Long: `goalforge refines a free-text statement of intent into a structured
SMART goal with 3-5 measurable key results and a confidence score,
using the Gemini API as the transformation engine.

Requires a Gemini API key via GEMINI_API_KEY or the config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// newPipeline builds the full refinement pipeline from the loaded config.
// The telemetry store is returned for the caller to close.
func newPipeline() (*refine.Pipeline, *telemetry.Store, error) {
	gw, err := gateway.New(cfg.GatewayConfig(), logger)
	if err != nil {
		return nil, nil, err
	}

	tel, err := telemetry.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open telemetry store: %w", err)
	}

	return refine.New(gw, tel, logger), tel, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "goalforge.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(usageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
