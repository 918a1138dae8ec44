// Package audit keeps an append-only JSONL history of scan sessions.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redactyl/scangate/internal/types"
)

// FileName is the audit log written in the working directory.
const FileName = ".scangate_audit.jsonl"

type SessionRecord struct {
	Timestamp     time.Time         `json:"timestamp"`
	SessionID     string            `json:"session_id"`
	Target        string            `json:"target"`
	Category      string            `json:"category,omitempty"`
	URLsFound     int               `json:"urls_found"`
	RawFindings   int               `json:"raw_findings"`
	TotalFindings int               `json:"total_findings"`
	Suppressed    int               `json:"suppressed"`
	RiskCounts    map[string]int    `json:"risk_counts"`
	FailOn        string            `json:"fail_on,omitempty"`
	Passed        bool              `json:"passed"`
	Duration      string            `json:"duration"`
	TopFindings   []FindingSummary  `json:"top_findings,omitempty"`
	AllFindings   []types.Finding   `json:"all_findings,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
}

type FindingSummary struct {
	Fingerprint string `json:"fingerprint"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Param       string `json:"param,omitempty"`
	Risk        string `json:"risk"`
}

type AuditLog struct {
	logPath string
}

func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{logPath: filepath.Join(dir, FileName)}
}

func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns all records, newest first. Undecodable lines are
// skipped.
func (a *AuditLog) LoadHistory() ([]SessionRecord, error) {
	f, err := os.Open(a.logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []SessionRecord
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record SessionRecord
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (a *AuditLog) LogSession(record SessionRecord) error {
	// Owner-only: records carry finding metadata and evidence excerpts.
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record at index, counted newest first as
// returned by LoadHistory.
func (a *AuditLog) DeleteRecord(index int) error {
	records, err := a.LoadHistory()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}
	records = append(records[:index], records[index+1:]...)

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	f, err := os.Create(a.logPath)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}
	}
	return nil
}

// SessionInput carries what a finished scan knows about itself.
type SessionInput struct {
	SessionID string
	Target    string
	Category  string
	URLsFound int
	Raw       []types.Finding
	Findings  []types.Finding
	FailOn    string
	Passed    bool
	Duration  time.Duration
}

func CreateSessionRecord(in SessionInput) SessionRecord {
	riskCounts := make(map[string]int)
	for _, f := range in.Findings {
		riskCounts[f.Risk.String()]++
	}

	top := make([]FindingSummary, 0, 10)
	for i, f := range in.Findings {
		if i >= 10 {
			break
		}
		top = append(top, FindingSummary{
			Fingerprint: f.Fingerprint(),
			Title:       f.Title,
			URL:         f.URL,
			Param:       f.Param,
			Risk:        f.Risk.String(),
		})
	}

	return SessionRecord{
		Timestamp:     time.Now(),
		SessionID:     in.SessionID,
		Target:        in.Target,
		Category:      in.Category,
		URLsFound:     in.URLsFound,
		RawFindings:   len(in.Raw),
		TotalFindings: len(in.Findings),
		Suppressed:    len(in.Raw) - len(in.Findings),
		RiskCounts:    riskCounts,
		FailOn:        in.FailOn,
		Passed:        in.Passed,
		Duration:      in.Duration.String(),
		TopFindings:   top,
		AllFindings:   trimEvidence(in.Findings),
	}
}

const maxEvidence = 120

// trimEvidence returns a copy of findings with long evidence excerpts cut
// short, so response bodies do not end up in the audit log.
func trimEvidence(findings []types.Finding) []types.Finding {
	out := make([]types.Finding, len(findings))
	for i, f := range findings {
		out[i] = f
		if len(f.Evidence) > maxEvidence {
			out[i].Evidence = f.Evidence[:maxEvidence] + "…"
		}
	}
	return out
}
