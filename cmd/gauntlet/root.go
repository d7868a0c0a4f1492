package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parleylabs/gauntlet/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "gauntlet",
	Short: "Run conversational test suites against agent graphs",
	Long: `gauntlet executes simulated conversations against a declarative agent
graph, scores the transcripts with deterministic rules or LLM judges, and
renders the results as JSON, JUnit XML, or Markdown.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	viper.SetEnvPrefix("GAUNTLET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("openai-api-key", "GAUNTLET_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai-base-url", "GAUNTLET_OPENAI_BASE_URL", "OPENAI_BASE_URL")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
}
