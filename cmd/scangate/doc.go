// Package scangate provides the command-line interface for the scangate tool.
// It configures subcommands (scan, policies, fp, history, etc.), parses flags,
// and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/redactyl/scangate/cmd/scangate"
//	func main() { scangate.Execute() }
package scangate
