package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/redactyl/scangate/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLoc        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]string `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt `json:"artifactLocation"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

func riskToLevel(r types.Risk) string {
	switch r {
	case types.RiskHigh:
		return "error"
	case types.RiskMedium:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes findings as SARIF 2.1.0 to the provided writer.
func WriteSARIF(w io.Writer, findings []types.Finding, version string) error {
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "scangate", Version: version}},
		Results: []sarifResult{},
	}
	for _, f := range findings {
		text := f.Title
		if f.Param != "" {
			text += " (parameter " + f.Param + ")"
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:              strconv.Itoa(f.PluginID),
			Level:               riskToLevel(f.Risk),
			Message:             sarifMessage{Text: text},
			Locations:           []sarifLoc{{PhysicalLocation: sarifPhys{ArtifactLocation: sarifArt{URI: f.URL}}}},
			PartialFingerprints: map[string]string{"scangateKey/v1": f.Fingerprint()},
			Properties: map[string]string{
				"cwe":        strconv.Itoa(f.CWEID),
				"risk":       f.Risk.String(),
				"confidence": string(f.Confidence),
			},
		})
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
