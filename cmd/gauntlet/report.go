package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parleylabs/gauntlet/results"
)

var (
	reportInputPath  string
	reportOutputPath string
	reportFormat     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render a saved JSON run into another format",
	Example: `  gauntlet report --input run.json --format markdown
  gauntlet report --input run.json --format junit --output junit.xml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(reportInputPath)
		if err != nil {
			return fmt.Errorf("opening run report: %w", err)
		}
		defer f.Close()

		run, err := results.LoadJSON(f)
		if err != nil {
			return err
		}

		if reportOutputPath != "" {
			return results.Save(run, reportOutputPath, reportFormat)
		}

		writer, err := results.ForFormat(reportFormat)
		if err != nil {
			return err
		}
		return writer.Write(cmd.OutOrStdout(), run)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportInputPath, "input", "i", "", "JSON run report to read (required)")
	reportCmd.Flags().StringVarP(&reportOutputPath, "output", "o", "", "write to this path instead of stdout")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "output format: json, junit, or markdown")
	_ = reportCmd.MarkFlagRequired("input")
}
