package triage

import (
	"strconv"
	"strings"

	"github.com/redactyl/scangate/internal/types"
)

// RenderDetails formats findings as plain-text blocks, one per finding in
// input order: title, URL, parameter and CWE id on separate lines. An empty
// slice renders as "".
func RenderDetails(findings []types.Finding) string {
	var b strings.Builder
	for _, f := range findings {
		b.WriteString(f.Title)
		b.WriteString("\nURL: ")
		b.WriteString(f.URL)
		b.WriteString("\nParameter: ")
		b.WriteString(f.Param)
		b.WriteString("\nCWE: ")
		b.WriteString(strconv.Itoa(f.CWEID))
		b.WriteString("\n")
	}
	return b.String()
}
