package core

import (
	"encoding/json"
	"io"
)

// WriteFindingsJSON writes findings as an indented JSON array. A nil slice is
// written as [] so consumers never see null.
func WriteFindingsJSON(w io.Writer, findings []Finding) error {
	if findings == nil {
		findings = []Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// ReadFindingsJSON decodes a JSON array produced by WriteFindingsJSON or by
// `scangate scan --json`.
func ReadFindingsJSON(r io.Reader) ([]Finding, error) {
	var fs []Finding
	if err := json.NewDecoder(r).Decode(&fs); err != nil {
		return nil, err
	}
	return fs, nil
}
