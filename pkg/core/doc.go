// Package core provides a small, stable facade over scangate's internal
// engine for external integrations such as test harnesses that drive a
// browser themselves. It re-exports a narrow API surface so callers can
// depend on a stable import path without importing internal packages.
//
// Example:
//
//	client, err := core.NewZAPClient(core.ZAPConfig{APIURL: "http://127.0.0.1:8080"})
//	if err != nil { /* handle */ }
//	high := core.RiskHigh
//	res, err := core.Scan(ctx, core.Config{BaseURL: "http://app/", FailOn: &high}, client, nil)
//	_ = core.WriteFindingsJSON(os.Stdout, res.Findings)
package core
