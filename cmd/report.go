package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/report"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report FILE",
	Short: "Re-render a saved JSON impact report",
	Long: `Read a report written by 'acto analyze --format json --output FILE' and
print it again, for example as markdown for a pull request comment.`,
	Example: `  acto analyze --project 1 --type table --id 42 --change delete -f json -o impact.json
  acto report impact.json --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showReport(cmd.OutOrStdout(), args[0], reportFormat)
	},
}

func showReport(w io.Writer, path, format string) error {
	rep, err := report.ReadJSON(path)
	if err != nil {
		return err
	}
	if rep.Result == nil {
		return fmt.Errorf("%s holds no analysis result", path)
	}
	return report.Render(w, rep, format)
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", report.FormatText, "output format (text, json, markdown)")
	rootCmd.AddCommand(reportCmd)
}
