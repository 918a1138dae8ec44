package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/redactyl/scangate/internal/types"
)

type PrintOptions struct {
	NoColor       bool
	Duration      time.Duration
	URLsFound     int
	TotalFindings int // before suppression and deduplication
}

var riskStyles = map[types.Risk]lipgloss.Style{
	types.RiskHigh:          lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	types.RiskMedium:        lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	types.RiskLow:           lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	types.RiskInformational: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

func riskLabel(r types.Risk, noColor bool) string {
	if noColor {
		return r.String()
	}
	return riskStyles[r].Render(r.String())
}

// sorted orders findings by descending risk, then URL, without touching the
// caller's slice.
func sorted(findings []types.Finding) []types.Finding {
	out := append([]types.Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Risk != out[j].Risk {
			return out[i].Risk > out[j].Risk
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// PrintTable renders findings as a bordered table followed by a summary.
func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) error {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No vulnerabilities found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("RISK", "CWE", "ALERT", "URL", "PARAMETER", "CONFIDENCE")
		for _, f := range sorted(findings) {
			if err := table.Append([]string{
				riskLabel(f.Risk, opts.NoColor),
				strconv.Itoa(f.CWEID),
				f.Title,
				f.URL,
				f.Param,
				string(f.Confidence),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	printFooter(w, findings, opts)
	return nil
}

// PrintText renders findings as aligned plain-text columns.
func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No vulnerabilities found ✅")
	} else {
		maxTitle := 8
		for _, f := range findings {
			if l := len(f.Title); l > maxTitle {
				maxTitle = l
			}
		}
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range sorted(findings) {
			risk := fmt.Sprintf("%-13s", f.Risk.String())
			if !opts.NoColor {
				risk = riskStyles[f.Risk].Render(risk)
			}
			param := f.Param
			if param == "" {
				param = "-"
			}
			fmt.Fprintf(w, "%s %-*s %s [%s] cwe=%d\n", risk, maxTitle, f.Title, f.URL, param, f.CWEID)
		}
	}
	printFooter(w, findings, opts)
}

func printFooter(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.URLsFound <= 0 && opts.TotalFindings <= 0 {
		return
	}
	c := CountByRisk(findings)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (high: %d, medium: %d, low: %d, informational: %d)\n", len(findings),
		c[types.RiskHigh], c[types.RiskMedium], c[types.RiskLow], c[types.RiskInformational])
	if opts.TotalFindings > len(findings) {
		fmt.Fprintf(w, "Suppressed or duplicate: %d\n", opts.TotalFindings-len(findings))
	}
	if opts.URLsFound > 0 {
		fmt.Fprintf(w, "URLs discovered: %d\n", opts.URLsFound)
	}
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
}
