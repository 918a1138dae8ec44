package scangate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/cache"
	"github.com/redactyl/scangate/internal/report"
	"github.com/redactyl/scangate/internal/triage"
	"github.com/redactyl/scangate/pkg/core"
)

var (
	flagReportFailOn  string
	flagReportFPFiles []string
	flagReportInput   string
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render and re-gate the findings of the last scan session",
		Long: "Loads the findings saved by the most recent scan in this directory, " +
			"applies any additional false positive rule files and renders them again. " +
			"The risk gate is re-applied so a different --fail-on can be tried without rescanning.",
		RunE: runReport,
	}
	cmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON")
	cmd.Flags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().StringVar(&flagReportFailOn, "fail-on", "", "fail on findings at or above: informational|low|medium|high|none (default from config, then medium)")
	cmd.Flags().StringVarP(&flagReportInput, "input", "i", "", "read findings from a scan --json output file instead of the last session")
	cmd.Flags().StringArrayVar(&flagReportFPFiles, "fp-file", nil, "extra false positive rule file glob (repeatable)")
	registerFlagCompletions(cmd)
	rootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	fc, err := loadFileConfig(flagConfig)
	if err != nil {
		return err
	}
	last, err := loadReportInput(flagReportInput)
	if err != nil {
		return err
	}
	findings := last.Findings
	for _, pattern := range flagReportFPFiles {
		rules, err := triage.LoadRuleGlob(pattern)
		if err != nil {
			return err
		}
		findings = triage.SuppressFalsePositives(findings, rules)
	}
	failOn, err := parseFailOn(pickString(flagReportFailOn, fc.FailOn, nil))
	if err != nil {
		return err
	}
	if err := writeFindings(cmd.OutOrStdout(), findings, report.PrintOptions{
		NoColor:       colorDisabled(fc),
		URLsFound:     last.URLsFound,
		TotalFindings: last.RawCount,
	}); err != nil {
		return err
	}
	if failOn == nil {
		return nil
	}
	return report.AssertNoRiskAtOrAbove(findings, *failOn)
}

func loadReportInput(path string) (cache.SessionResults, error) {
	if path == "" {
		last, err := cache.LoadResults(".")
		if errors.Is(err, fs.ErrNotExist) {
			return last, fmt.Errorf("no saved session in this directory; run 'scangate scan' first")
		}
		return last, err
	}
	f, err := os.Open(path)
	if err != nil {
		return cache.SessionResults{}, err
	}
	defer f.Close()
	findings, err := core.ReadFindingsJSON(f)
	if err != nil {
		return cache.SessionResults{}, fmt.Errorf("%s: %w", path, err)
	}
	return cache.SessionResults{Findings: findings, RawCount: len(findings)}, nil
}
