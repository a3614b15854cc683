package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/report"
)

var policyFormat string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the risk policy analyses are scored with",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := cfg.Analysis.Policy
		out := cmd.OutOrStdout()

		switch policyFormat {
		case "text":
			fmt.Fprint(out, report.Policy(p))
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(map[string]any{"analysis": map[string]any{"policy": p}}); err != nil {
				return err
			}
			return enc.Close()
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", policyFormat)
		}
		return nil
	},
}

func init() {
	policyCmd.Flags().StringVarP(&policyFormat, "format", "f", "text", "output format (text, json, yaml)")
	rootCmd.AddCommand(policyCmd)
}
