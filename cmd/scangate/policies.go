package scangate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/policy"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "policies",
		Short: "List policy categories and their scanner rule ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := loadFileConfig(flagConfig)
			if err != nil {
				return err
			}
			reg, err := policy.NewRegistry(fc.CustomPolicies)
			if err != nil {
				return fmt.Errorf("custom_policies: %w", err)
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("CATEGORY", "RULE IDS")
			for _, name := range reg.Names() {
				ids, _ := reg.Lookup(name)
				parts := make([]string, len(ids))
				for i, id := range ids {
					parts[i] = strconv.Itoa(id)
				}
				if err := table.Append([]string{name, strings.Join(parts, ", ")}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	})
}
