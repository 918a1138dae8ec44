package triage

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/redactyl/scangate/internal/types"
)

// RuleFile is the on-disk shape of a false-positive rule file.
type RuleFile struct {
	FalsePositives []types.FalsePositiveRule `yaml:"false_positives"`
}

// LoadRules reads one YAML rule file.
func LoadRules(path string) ([]types.FalsePositiveRule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf RuleFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, r := range rf.FalsePositives {
		if r.URL == "" || r.CWEID == "" {
			return nil, fmt.Errorf("%s: rule %d needs url and cwe_id", path, i+1)
		}
	}
	return rf.FalsePositives, nil
}

// LoadRuleGlob loads every rule file matching pattern (doublestar syntax,
// e.g. "security/fp/**/*.yml") in lexical order. A pattern that matches
// nothing yields no rules and no error.
func LoadRuleGlob(pattern string) ([]types.FalsePositiveRule, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("false positive glob %q: %w", pattern, err)
	}
	sort.Strings(paths)
	var all []types.FalsePositiveRule
	for _, p := range paths {
		rules, err := LoadRules(p)
		if err != nil {
			return nil, err
		}
		all = append(all, rules...)
	}
	return all, nil
}

// RulesFor converts findings into rules that suppress exactly them.
func RulesFor(findings []types.Finding) []types.FalsePositiveRule {
	seen := map[types.Key]bool{}
	var rules []types.FalsePositiveRule
	for _, f := range findings {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		rules = append(rules, types.FalsePositiveRule{URL: f.URL, Param: f.Param, CWEID: strconv.Itoa(f.CWEID)})
	}
	return rules
}

// SaveRules writes findings as accepted false positives to path.
func SaveRules(path string, findings []types.Finding) error {
	b, err := yaml.Marshal(RuleFile{FalsePositives: RulesFor(findings)})
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
