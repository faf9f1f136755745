package config

// LauncherConfig configures how targets are opened.
//
// Example configuration:
//
//	[launcher]
//	opener = ["mimeopen", "-n"]
type LauncherConfig struct {
	// Opener replaces the platform opener. The target path is appended.
	// Default: xdg-open or gio on Linux, open on macOS, rundll32 on Windows.
	Opener []string `json:"opener,omitempty" koanf:"opener" toml:"opener,omitempty"`
}

// HasOpener returns whether a custom opener is configured.
func (l *LauncherConfig) HasOpener() bool {
	return l != nil && len(l.Opener) > 0
}
