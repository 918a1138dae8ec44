package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redactyl/scangate/internal/types"
)

// FileConfig is the on-disk YAML configuration shape for scangate. Pointer
// fields distinguish "unset" from a zero value so files can be layered.
type FileConfig struct {
	Scanner *ScannerConfig `yaml:"scanner,omitempty"`

	BaseURL       *string       `yaml:"base_url,omitempty"`
	BaseSecureURL *string       `yaml:"base_secure_url,omitempty"`
	Spider        *SpiderConfig `yaml:"spider,omitempty"`

	Policies        []PolicyConfig   `yaml:"policies,omitempty"`
	CustomPolicies  map[string][]int `yaml:"custom_policies,omitempty"`
	PassiveScan     *bool            `yaml:"passive_scan,omitempty"`
	DisableAllRules *bool            `yaml:"disable_all_rules,omitempty"`

	// Scenarios maps a scenario name to the request URLs replayed through
	// the scanner proxy before active scanning.
	Scenarios map[string][]string `yaml:"scenarios,omitempty"`

	FalsePositives     []types.FalsePositiveRule `yaml:"false_positives,omitempty"`
	FalsePositiveFiles []string                  `yaml:"false_positive_files,omitempty"`

	FailOn       *string `yaml:"fail_on,omitempty"`
	PollInterval *string `yaml:"poll_interval,omitempty"`
	PollTimeout  *string `yaml:"poll_timeout,omitempty"`
	NoColor      *bool   `yaml:"no_color,omitempty"`
}

// ScannerConfig locates the ZAP instance.
type ScannerConfig struct {
	APIURL    *string `yaml:"api_url,omitempty"`
	APIKey    *string `yaml:"api_key,omitempty"`
	ProxyURL  *string `yaml:"proxy_url,omitempty"`
	RateLimit *int    `yaml:"rate_limit,omitempty"`
	Timeout   *string `yaml:"timeout,omitempty"`
}

type SpiderConfig struct {
	MaxDepth *int     `yaml:"max_depth,omitempty"`
	Threads  *int     `yaml:"threads,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty"`
	// URLs may contain the aliases "baseurl" and "basesecureurl".
	URLs []string `yaml:"urls,omitempty"`
}

// PolicyConfig selects a category and optionally tunes its rules.
type PolicyConfig struct {
	Name      string `yaml:"name"`
	Strength  string `yaml:"strength,omitempty"`
	Threshold string `yaml:"threshold,omitempty"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LocalNames are the repo-local config file names in search order.
var LocalNames = []string{".scangate.yml", ".scangate.yaml", "scangate.yml", "scangate.yaml"}

// LoadLocal searches for a project-local config file in the given root.
func LoadLocal(root string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range LocalNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// GlobalPath returns $XDG_CONFIG_HOME/scangate/config.yml (or the ~/.config
// equivalent), or "" when no config directory can be determined.
func GlobalPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, "scangate", "config.yml")
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p := GlobalPath()
	if p == "" {
		return cfg, errors.New("no config dir")
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// Merge layers over on top of fc: set fields in over win, lists and maps
// from over replace those in fc when non-empty.
func (fc FileConfig) Merge(over FileConfig) FileConfig {
	out := fc
	if over.Scanner != nil {
		if out.Scanner == nil {
			out.Scanner = over.Scanner
		} else {
			s := *out.Scanner
			o := over.Scanner
			s.APIURL = firstSet(o.APIURL, s.APIURL)
			s.APIKey = firstSet(o.APIKey, s.APIKey)
			s.ProxyURL = firstSet(o.ProxyURL, s.ProxyURL)
			s.RateLimit = firstSet(o.RateLimit, s.RateLimit)
			s.Timeout = firstSet(o.Timeout, s.Timeout)
			out.Scanner = &s
		}
	}
	if over.Spider != nil {
		if out.Spider == nil {
			out.Spider = over.Spider
		} else {
			s := *out.Spider
			o := over.Spider
			s.MaxDepth = firstSet(o.MaxDepth, s.MaxDepth)
			s.Threads = firstSet(o.Threads, s.Threads)
			if len(o.Exclude) > 0 {
				s.Exclude = o.Exclude
			}
			if len(o.URLs) > 0 {
				s.URLs = o.URLs
			}
			out.Spider = &s
		}
	}
	out.BaseURL = firstSet(over.BaseURL, out.BaseURL)
	out.BaseSecureURL = firstSet(over.BaseSecureURL, out.BaseSecureURL)
	out.PassiveScan = firstSet(over.PassiveScan, out.PassiveScan)
	out.DisableAllRules = firstSet(over.DisableAllRules, out.DisableAllRules)
	out.FailOn = firstSet(over.FailOn, out.FailOn)
	out.PollInterval = firstSet(over.PollInterval, out.PollInterval)
	out.PollTimeout = firstSet(over.PollTimeout, out.PollTimeout)
	out.NoColor = firstSet(over.NoColor, out.NoColor)
	if len(over.Policies) > 0 {
		out.Policies = over.Policies
	}
	if len(over.CustomPolicies) > 0 {
		out.CustomPolicies = over.CustomPolicies
	}
	if len(over.Scenarios) > 0 {
		out.Scenarios = over.Scenarios
	}
	if len(over.FalsePositives) > 0 {
		out.FalsePositives = over.FalsePositives
	}
	if len(over.FalsePositiveFiles) > 0 {
		out.FalsePositiveFiles = over.FalsePositiveFiles
	}
	return out
}

func firstSet[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}

// GetScannerConfig returns the scanner section, never nil.
func (fc FileConfig) GetScannerConfig() ScannerConfig {
	if fc.Scanner == nil {
		return ScannerConfig{}
	}
	return *fc.Scanner
}

func (sc ScannerConfig) GetAPIURL() string   { return deref(sc.APIURL) }
func (sc ScannerConfig) GetAPIKey() string   { return deref(sc.APIKey) }
func (sc ScannerConfig) GetProxyURL() string { return deref(sc.ProxyURL) }

// GetRateLimit returns requests per second, 0 meaning the client default.
func (sc ScannerConfig) GetRateLimit() int {
	if sc.RateLimit == nil {
		return 0
	}
	return *sc.RateLimit
}

// GetTimeout parses the per-request timeout; unset yields 0.
func (sc ScannerConfig) GetTimeout() (time.Duration, error) {
	return parseDuration("scanner.timeout", sc.Timeout)
}

// GetSpiderConfig returns the spider section, never nil.
func (fc FileConfig) GetSpiderConfig() SpiderConfig {
	if fc.Spider == nil {
		return SpiderConfig{}
	}
	return *fc.Spider
}

// GetPollInterval parses poll_interval; unset yields 0.
func (fc FileConfig) GetPollInterval() (time.Duration, error) {
	return parseDuration("poll_interval", fc.PollInterval)
}

// GetPollTimeout parses poll_timeout; unset yields 0 (no deadline).
func (fc FileConfig) GetPollTimeout() (time.Duration, error) {
	return parseDuration("poll_timeout", fc.PollTimeout)
}

// IsPassiveScanEnabled defaults to true.
func (fc FileConfig) IsPassiveScanEnabled() bool {
	if fc.PassiveScan == nil {
		return true
	}
	return *fc.PassiveScan
}

// ShouldDisableAllRules defaults to true, so only the selected categories run.
func (fc FileConfig) ShouldDisableAllRules() bool {
	if fc.DisableAllRules == nil {
		return true
	}
	return *fc.DisableAllRules
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseDuration(key string, s *string) (time.Duration, error) {
	if s == nil || *s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, *s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, *s)
	}
	return d, nil
}
