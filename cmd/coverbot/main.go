package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coverbot/internal/logging"
)

const version = "0.1.0"

var (
	// Global flags
	verbose    bool
	configPath string
	apiKey     string
	provider   string
	model      string
	attempts   int
	timeout    time.Duration
	pretty     bool

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "coverbot",
	Short: "coverbot - coverage-guided test synthesis for Go functions",
	Long: `coverbot asks a text-completion service to write tests for a Go
function, measures which statement lines actually execute, and feeds the
uncovered line numbers back into the next prompt. The loop repeats until
the function is fully covered or the attempt budget runs out.

Run 'coverbot run' without arguments to try the built-in demo targets.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// runCmd drives refinement sessions against one or more targets
var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Synthesize covering tests for Go functions",
	Long: `Runs one refinement session per target and prints the full
prompt/response transcript. Each file argument holds a single
self-contained Go function; with no arguments the built-in demo targets
are used.

Example:
  coverbot run --provider gemini pkg/clamp.go`,
	RunE: runSynthesis,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the coverbot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coverbot %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: coverbot.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (or set OPENAI_API_KEY / GEMINI_API_KEY env)")

	// Run flags
	runCmd.Flags().StringVar(&provider, "provider", "", "Completion provider: openai or gemini")
	runCmd.Flags().StringVar(&model, "model", "", "Model name override")
	runCmd.Flags().IntVar(&attempts, "attempts", 0, "Attempt budget per target (default from config)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall run timeout")
	runCmd.Flags().BoolVar(&pretty, "pretty", false, "Render transcripts as markdown")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
