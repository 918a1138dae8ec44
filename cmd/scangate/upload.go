package scangate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redactyl/scangate/pkg/core"
)

const uploadSchemaVersion = "1"

type uploadEnvelope struct {
	Tool      string         `json:"tool"`
	Version   string         `json:"version"`
	Schema    string         `json:"schema_version"`
	SessionID string         `json:"session_id,omitempty"`
	Target    string         `json:"target,omitempty"`
	Passed    bool           `json:"passed"`
	Findings  []core.Finding `json:"findings"`
}

// uploadFindings POSTs the session outcome as JSON. Sessions without
// findings are still uploaded so the receiver sees the passing run.
func uploadFindings(ctx context.Context, url, token string, env uploadEnvelope) error {
	env.Tool, env.Version, env.Schema = "scangate", version, uploadSchemaVersion
	if env.Findings == nil {
		env.Findings = []core.Finding{}
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload status %d", resp.StatusCode)
	}
	return nil
}
