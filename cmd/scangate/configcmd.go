package scangate

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/redactyl/scangate/internal/config"
)

var (
	cfgOutput string
	cfgForce  bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter .scangate.yml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.WriteStarter(cfgOutput, cfgForce); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
			return nil
		},
	}
	initCmd.Flags().StringVar(&cfgOutput, "output", ".scangate.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective file configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := loadFileConfig(flagConfig)
			if err != nil {
				return err
			}
			if fc.Scanner != nil && fc.Scanner.APIKey != nil {
				masked := "********"
				s := *fc.Scanner
				s.APIKey = &masked
				fc.Scanner = &s
			}
			b, err := yaml.Marshal(&fc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cfgCmd.AddCommand(showCmd)
}
