// yui is a continuously running synthetic mind: it generates self-directed
// questions, thinks them through a staged multi-persona pipeline, evolves
// its value weights, and sleeps when its energy runs down.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yui/internal/logging"
)

var (
	// Global flags
	home    string
	verbose bool
	offline bool

	// Logger for CLI-surface messages; engine internals use the
	// categorized file logger.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "yui",
	Short: "yui - a self-reflective thought engine",
	Long: `yui runs a continuous consciousness loop: it asks itself questions,
consults a small society of reasoning personas, scores and critiques the
answers, evolves its value priorities, and records everything it thought.

Run 'yui run' to start the loop, or 'yui ask' for a single question.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(home); err != nil {
			return fmt.Errorf("failed to initialize file logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&home, "home", ".", "engine home directory (.yui lives here)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose CLI logging")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use the scripted generator instead of the Gemini API")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(growthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
