// Package engine runs one complete scan session against a remote scanner:
// policy selection, spidering, application exercise, active scanning, triage
// and the risk gate. This package is internal; external consumers should use
// the stable facade in pkg/core.
package engine
