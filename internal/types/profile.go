package types

// Profile represents a Firefox profile used to seed the sidebar.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}
