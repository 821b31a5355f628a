// Package commands provides the CLI commands for hugin.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hugin-ai/hugin/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel   string
	prettyLogs bool
	dataDir    string
	configDir  string
)

var rootCmd = &cobra.Command{
	Use:   "hugin",
	Short: "Hugin - agent orchestration framework",
	Long: `Hugin runs sessions of LLM-driven agents over an interaction stack:
each agent works a task by asking an oracle, calling tools, forking
branches and handing control back to humans when needed.

Run 'hugin run' to execute a task, or 'hugin serve' to expose sessions
over HTTP.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; explicit env vars win either way.
		_ = godotenv.Load()
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Pretty: prettyLogs,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Human-readable console logs")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "Session storage directory")
	rootCmd.PersistentFlags().StringVar(&configDir, "configs", "configs", "Agent config directory")

	rootCmd.SetVersionTemplate(fmt.Sprintf("hugin %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(showCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
