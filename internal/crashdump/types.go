// Package crashdump records diagnostic snapshots when a plugin call or the
// CLI itself panics.
package crashdump

import "time"

// CrashInfo is the content of one crash dump file.
type CrashInfo struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	PanicValue string         `json:"panic_value"`
	StackTrace string         `json:"stack_trace"`
	Runtime    RuntimeInfo    `json:"runtime"`
	Context    *ContextInfo   `json:"context,omitempty"`
	Config     map[string]any `json:"config,omitempty"`
	Metadata   DumpMetadata   `json:"metadata"`
}

// RuntimeInfo describes the Go runtime at crash time.
type RuntimeInfo struct {
	GOOS         string `json:"goos"`
	GOARCH       string `json:"goarch"`
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
}

// ContextInfo describes the user function being dispatched when the crash
// happened.
type ContextInfo struct {
	// Plugin is the unique name of the plugin that was executing.
	Plugin string `json:"plugin"`

	// DisplayName is the user function display name.
	DisplayName string `json:"display_name,omitempty"`

	// FilePath is the target file of the call.
	FilePath string `json:"file_path,omitempty"`

	// Parameters is the free-form parameter string of the call.
	Parameters string `json:"parameters,omitempty"`
}

// DumpMetadata carries host details.
type DumpMetadata struct {
	Version    string `json:"version"`
	User       string `json:"user,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
}

// DumpSummary is the listing form of a crash dump.
type DumpSummary struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	PanicValue string    `json:"panic_value"`
	Plugin     string    `json:"plugin,omitempty"`
	FilePath   string    `json:"file_path"`
	Size       int64     `json:"size"`
}
