package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/utils"
)

var (
	cfgFile   string
	debugMode bool

	// Warn by default so log lines do not clutter command output.
	logLevel = utils.NewLogLevel(false)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "promptchain",
	Short: "Chain completion requests, feeding each response into the next prompt",
	Long: `Promptchain sends a system prompt and a first user prompt to a chat completion
API, then repeats a follow-up prompt with the previous response appended, and
collects the responses into a transcript you can export.

Examples:
  promptchain run -s "You are terse." -f "Name a color." -n "Name another." -c 3
  echo "Summarize Go channels." | promptchain run -s "You are a tutor."
  promptchain serve --port 8080            # HTTP API
  promptchain mcp                          # MCP server over stdio`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.promptchain.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode")

	logger := initLogger()
	deps := NewDependencies(logger, logLevel)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return deps.Load(cfgFile, rootCmd.PersistentFlags().Lookup("debug"))
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if err := deps.Close(); err != nil {
			logger.Warn("Failed to close run store", zap.Error(err))
		}
		return nil
	}

	addCommands(logger, deps)
}

func initLogger() *zap.Logger {
	logger, err := utils.NewLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return logger
}

func addCommands(logger *zap.Logger, deps *Dependencies) {
	rootCmd.AddCommand(NewRunCommand(logger, deps).Command())
	rootCmd.AddCommand(NewServerCommand(logger, deps).Command())
	rootCmd.AddCommand(NewMCPCommand(logger, deps).Command())
	rootCmd.AddCommand(NewConfigurationCommand(logger, deps).Command())

	// Commands that don't need shared services
	rootCmd.AddCommand(NewVersionCommand(logger).Command())
}
