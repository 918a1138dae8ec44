package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
)

// Risk is the scanner's qualitative severity for an alert. Values are
// totally ordered: RiskInformational < RiskLow < RiskMedium < RiskHigh.
type Risk int

const (
	RiskInformational Risk = iota
	RiskLow
	RiskMedium
	RiskHigh
)

var riskNames = [...]string{"Informational", "Low", "Medium", "High"}

func (r Risk) String() string {
	if r < RiskInformational || r > RiskHigh {
		return "Risk(" + strconv.Itoa(int(r)) + ")"
	}
	return riskNames[r]
}

// AtLeast reports whether r is at or above min.
func (r Risk) AtLeast(min Risk) bool { return r >= min }

// ParseRisk maps a user or scanner supplied rating to a Risk. Matching is
// case-insensitive; "info" is accepted for Informational.
func ParseRisk(s string) (Risk, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "informational", "info":
		return RiskInformational, nil
	case "low":
		return RiskLow, nil
	case "medium", "med":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return RiskInformational, fmt.Errorf("unknown risk rating %q", s)
}

func (r Risk) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Risk) UnmarshalText(b []byte) error {
	v, err := ParseRisk(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Confidence is the scanner's reliability estimate for an alert, kept in the
// scanner's own vocabulary ("False Positive", "Low", "Medium", "High",
// "Confirmed").
type Confidence string

const (
	ConfidenceFalsePositive Confidence = "False Positive"
	ConfidenceLow           Confidence = "Low"
	ConfidenceMedium        Confidence = "Medium"
	ConfidenceHigh          Confidence = "High"
	ConfidenceConfirmed     Confidence = "Confirmed"
)

// Finding is a single alert reported by the scanner. Findings are treated as
// immutable once fetched.
type Finding struct {
	PluginID    int        `json:"plugin_id"`
	CWEID       int        `json:"cwe_id"`
	WASCID      int        `json:"wasc_id,omitempty"`
	Title       string     `json:"title"`
	Risk        Risk       `json:"risk"`
	Confidence  Confidence `json:"confidence"`
	URL         string     `json:"url"`
	Param       string     `json:"param"`
	Description string     `json:"description,omitempty"`
	Evidence    string     `json:"evidence,omitempty"`
	Solution    string     `json:"solution,omitempty"`
	Other       string     `json:"other,omitempty"`
}

// Key is the structural identity tuple used for suppression and
// deduplication. It is comparable and safe to use as a map key.
type Key struct {
	CWEID int
	Param string
	URL   string
}

// Key returns the weakness-category id, parameter and URL of f.
func (f Finding) Key() Key {
	return Key{CWEID: f.CWEID, Param: f.Param, URL: f.URL}
}

// Fingerprint is a stable short hash of Key, used where an opaque id is
// needed (SARIF partial fingerprints, audit records). Param and URL are
// length-prefixed so no pair of distinct keys share an encoding.
func (f Finding) Fingerprint() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(f.CWEID))
	for _, s := range []string{f.Param, f.URL} {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// FalsePositiveRule suppresses findings whose URL, parameter and CWE id all
// match exactly.
type FalsePositiveRule struct {
	URL   string `json:"url" yaml:"url"`
	Param string `json:"param" yaml:"param"`
	CWEID string `json:"cwe_id" yaml:"cwe_id"`
}

// Matches reports whether the rule applies to the given alert coordinates.
func (r FalsePositiveRule) Matches(url, param, cweID string) bool {
	return r.URL == url && r.Param == param && r.CWEID == cweID
}

// MatchesFinding is Matches applied to f, with the CWE id rendered in decimal.
func (r FalsePositiveRule) MatchesFinding(f Finding) bool {
	return r.Matches(f.URL, f.Param, strconv.Itoa(f.CWEID))
}

// Level is an attack strength or alert threshold understood by the scanner.
type Level string

const (
	LevelOff     Level = "OFF"
	LevelLow     Level = "LOW"
	LevelMedium  Level = "MEDIUM"
	LevelHigh    Level = "HIGH"
	LevelInsane  Level = "INSANE"
	LevelDefault Level = "DEFAULT"
)

// ErrInvalidLevel is returned by ParseLevel for words outside the scanner
// vocabulary.
var ErrInvalidLevel = errors.New("invalid level")

// ParseLevel normalises user input to upper case and validates it.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	switch l {
	case LevelOff, LevelLow, LevelMedium, LevelHigh, LevelInsane, LevelDefault:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q (want OFF, LOW, MEDIUM, HIGH, INSANE or DEFAULT)", ErrInvalidLevel, s)
}
