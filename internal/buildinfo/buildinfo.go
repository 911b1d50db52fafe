// Package buildinfo carries build identification injected via -ldflags.
package buildinfo

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is set at build time via -ldflags.
var Commit = "unknown"

// Date is set at build time via -ldflags.
var Date = "unknown"

// String returns a build identifier for logs and the version command.
func String() string {
	s := Version
	if s == "" || s == "dev" {
		if Commit != "" && Commit != "unknown" {
			s = Commit
		} else {
			s = "dev"
		}
	}
	if Date != "" && Date != "unknown" {
		s += " (" + Date + ")"
	}
	return s
}
