package scangate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/update"
)

var flagCheckOnly bool

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update scangate to the latest release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flagCheckOnly {
				latest, newer, err := update.Check(cmd.Context(), version, false)
				if err != nil {
					return err
				}
				if newer {
					fmt.Fprintf(cmd.OutOrStdout(), "v%s is available (current v%s)\n", latest, version)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "v%s is up to date\n", version)
				}
				return nil
			}
			v, err := selfUpdate()
			if err != nil {
				return fmt.Errorf("self-update: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated to v%s\n", v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagCheckOnly, "check", false, "only report whether a newer release exists")
	rootCmd.AddCommand(cmd)
}
