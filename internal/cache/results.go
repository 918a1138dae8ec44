// Package cache persists the findings of the most recent scan session so later
// commands can work on them without scanning again.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/redactyl/scangate/internal/types"
)

// FileName is the last-session file written in the working directory.
const FileName = ".scangate_last_session.json"

// SessionResults stores the triaged findings and metadata from a session.
type SessionResults struct {
	SessionID string          `json:"session_id"`
	Target    string          `json:"target"`
	Timestamp time.Time       `json:"timestamp"`
	URLsFound int             `json:"urls_found"`
	RawCount  int             `json:"raw_count"`
	Count     int             `json:"count"`
	Findings  []types.Finding `json:"findings"`
}

func resultsPath(dir string) string {
	return filepath.Join(dir, FileName)
}

// SaveResults overwrites the last-session file in dir.
func SaveResults(dir string, res SessionResults) error {
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now()
	}
	res.Count = len(res.Findings)
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(dir), b, 0644)
}

// LoadResults loads the last session written to dir.
func LoadResults(dir string) (SessionResults, error) {
	var results SessionResults
	f, err := os.ReadFile(resultsPath(dir))
	if err != nil {
		return results, err
	}
	if err := json.Unmarshal(f, &results); err != nil {
		return results, err
	}
	return results, nil
}
