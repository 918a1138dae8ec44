package scangate

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/audit"
)

var flagHistoryLimit int

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past scan sessions from the audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := audit.NewAuditLog(".").LoadHistory()
			if err != nil {
				return err
			}
			if flagHistoryLimit > 0 && len(records) > flagHistoryLimit {
				records = records[:flagHistoryLimit]
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("#", "WHEN", "SESSION", "TARGET", "FINDINGS", "HIGH", "GATE", "DURATION")
			for i, r := range records {
				gate := "pass"
				if !r.Passed {
					gate = "FAIL"
				}
				if r.FailOn == "" {
					gate = "-"
				}
				if err := table.Append([]string{
					strconv.Itoa(i),
					r.Timestamp.Local().Format("2006-01-02 15:04"),
					shortID(r.SessionID),
					r.Target,
					fmt.Sprintf("%d/%d", r.TotalFindings, r.RawFindings),
					strconv.Itoa(r.RiskCounts["High"]),
					gate,
					r.Duration,
				}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "show at most N sessions (0 = all)")

	del := &cobra.Command{
		Use:   "delete <index>",
		Short: "Remove one session from the audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			if err := audit.NewAuditLog(".").DeleteRecord(idx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted session", idx)
			return nil
		},
	}
	cmd.AddCommand(del)
	rootCmd.AddCommand(cmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
