package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/redactyl/scangate/internal/types"
)

func TestPrintText_NoFindings_ShowsFooter(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, nil, PrintOptions{Duration: 1200 * time.Millisecond, URLsFound: 10})
	out := buf.String()
	if !strings.Contains(out, "No vulnerabilities found") {
		t.Fatalf("expected friendly no-findings message; got: %q", out)
	}
	if !strings.Contains(out, "URLs discovered: 10") {
		t.Fatalf("expected footer with discovered URLs; got: %q", out)
	}
}

func TestPrintText_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	fs := []types.Finding{{CWEID: 79, Title: "Cross Site Scripting (Reflected)", URL: "/search", Param: "q", Risk: types.RiskHigh}}
	PrintText(&buf, fs, PrintOptions{NoColor: true})
	out := buf.String()
	if !strings.Contains(out, "Findings: 1") {
		t.Fatalf("expected findings header; got: %q", out)
	}
	if !strings.Contains(out, "cwe=79") || !strings.Contains(out, "[q]") {
		t.Fatalf("expected cwe and parameter columns; got: %q", out)
	}
}

func TestPrintText_SortsByRiskDescending(t *testing.T) {
	var buf bytes.Buffer
	fs := []types.Finding{
		{Title: "low-one", Risk: types.RiskLow},
		{Title: "high-one", Risk: types.RiskHigh},
	}
	PrintText(&buf, fs, PrintOptions{NoColor: true})
	out := buf.String()
	if strings.Index(out, "high-one") > strings.Index(out, "low-one") {
		t.Fatalf("expected high risk first; got: %q", out)
	}
}

func TestPrintTable_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	fs := []types.Finding{{CWEID: 89, Title: "SQL Injection", URL: "/item", Param: "id", Risk: types.RiskHigh, Confidence: types.ConfidenceMedium}}
	if err := PrintTable(&buf, fs, PrintOptions{NoColor: true}); err != nil {
		t.Fatalf("PrintTable: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "RISK") {
		t.Fatalf("expected table header with RISK; got: %q", out)
	}
	if !strings.Contains(out, "SQL Injection") || !strings.Contains(out, "/item") {
		t.Fatalf("expected finding in table; got: %q", out)
	}
}

func TestPrintTable_SummaryCountsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	fs := []types.Finding{{Title: "x", Risk: types.RiskMedium}}
	if err := PrintTable(&buf, fs, PrintOptions{NoColor: true, TotalFindings: 4}); err != nil {
		t.Fatalf("PrintTable: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "medium: 1") {
		t.Fatalf("expected per-risk counts; got: %q", out)
	}
	if !strings.Contains(out, "Suppressed or duplicate: 3") {
		t.Fatalf("expected suppressed count; got: %q", out)
	}
}
