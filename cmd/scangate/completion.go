package scangate

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/policy"
)

var (
	levelWords  = []string{"OFF", "LOW", "MEDIUM", "HIGH", "INSANE", "DEFAULT"}
	failOnWords = []string{"informational", "low", "medium", "high", "none"}
)

func fixedCompletion(words []string) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, w := range words {
			if strings.HasPrefix(strings.ToLower(w), strings.ToLower(toComplete)) {
				out = append(out, w)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// completePolicies offers the built-in categories plus custom_policies from
// the resolved config file.
func completePolicies(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := policy.DefaultRegistry().Names()
	if fc, err := loadFileConfig(flagConfig); err == nil {
		if reg, err := policy.NewRegistry(fc.CustomPolicies); err == nil {
			names = reg.Names()
		}
	}
	return fixedCompletion(names)(nil, nil, toComplete)
}

func completeScenarios(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	fc, err := loadFileConfig(flagConfig)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return sortedKeys(fc.Scenarios), cobra.ShellCompDirectiveNoFileComp
}

// registerFlagCompletions attaches value completion to whichever of the
// known flags cmd defines.
func registerFlagCompletions(cmd *cobra.Command) {
	funcs := map[string]cobra.CompletionFunc{
		"policy":    completePolicies,
		"strength":  fixedCompletion(levelWords),
		"threshold": fixedCompletion(levelWords),
		"fail-on":   fixedCompletion(failOnWords),
		"min-risk":  fixedCompletion(failOnWords[:4]),
		"scenario":  completeScenarios,
	}
	for name, fn := range funcs {
		if cmd.Flags().Lookup(name) != nil {
			_ = cmd.RegisterFlagCompletionFunc(name, fn)
		}
	}
}

func init() {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
		Example: `
# Bash
scangate completion bash > /etc/bash_completion.d/scangate

# Zsh
scangate completion zsh > "${fpath[1]}/_scangate"

# Fish
scangate completion fish > ~/.config/fish/completions/scangate.fish

# PowerShell
scangate completion powershell > $PROFILE\scangate.ps1
`,
	}
	rootCmd.AddCommand(cmd)
}
