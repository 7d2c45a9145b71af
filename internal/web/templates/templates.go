// Package templates holds the templ components of the TalentTrack web shell.
// Edit the .templ sources and run `templ generate` to refresh the
// *_templ.go files.
package templates

//go:generate templ generate

// Navigation keys for Layout.
const (
	NavDashboard  = "dashboard"
	NavCandidates = "candidates"
	NavImport     = "import"
)
