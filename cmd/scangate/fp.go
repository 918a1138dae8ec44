package scangate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/cache"
	"github.com/redactyl/scangate/internal/scanner/factory"
	"github.com/redactyl/scangate/internal/triage"
	"github.com/redactyl/scangate/internal/types"
)

var (
	flagFPOutput   string
	flagFPMinRisk  string
	flagFPFromLast bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "fp",
		Short: "Manage false positive rules",
	}

	accept := &cobra.Command{
		Use:   "accept",
		Short: "Accept the scanner's current alerts as false positives",
		Long: "Fetches the alerts currently held by the scanner, collapses duplicates " +
			"and writes one rule per alert to a rule file that scan can load with --fp-file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := loadFileConfig(flagConfig)
			if err != nil {
				return err
			}
			var findings []types.Finding
			if flagFPFromLast {
				last, err := cache.LoadResults(".")
				if err != nil {
					return fmt.Errorf("load last session: %w", err)
				}
				findings = last.Findings
			} else {
				client, err := factory.New(factory.Config{Scanner: fc.GetScannerConfig(), Logger: logger})
				if err != nil {
					return err
				}
				findings, err = triage.Fetch(cmd.Context(), client, nil)
				if err != nil {
					return err
				}
				findings = triage.Dedupe(findings, client)
			}
			if flagFPMinRisk != "" {
				min, err := types.ParseRisk(flagFPMinRisk)
				if err != nil {
					return fmt.Errorf("--min-risk: %w", err)
				}
				findings = triage.FilterByMinimumRisk(findings, min)
			}
			if err := triage.SaveRules(flagFPOutput, findings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rules to %s\n", len(triage.RulesFor(findings)), flagFPOutput)
			return nil
		},
	}
	accept.Flags().StringVarP(&flagFPOutput, "output", "o", "scangate.false-positives.yml", "rule file to write")
	accept.Flags().BoolVar(&flagFPFromLast, "from-last", false, "accept the findings saved by the last scan instead of querying the scanner")
	accept.Flags().StringVar(&flagFPMinRisk, "min-risk", "", "only accept alerts at or above this risk")

	registerFlagCompletions(accept)
	rootCmd.AddCommand(cmd)
	cmd.AddCommand(accept)
}
