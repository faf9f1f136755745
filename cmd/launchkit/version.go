package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

const revisionWidth = 12

// Set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the launchkit version with the commit, build date and toolchain it was built from.",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), versionString())
	},
}

// versionRequested is bound to the root --version flag.
var versionRequested bool

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Flags().BoolVarP(&versionRequested, "version", "v", false, "Print version information")
}

// buildFields lists the lines printed under the version, in order. VCS data
// embedded by the go command fills in for a binary built without ldflags.
func buildFields() [][2]string {
	fields := [][2]string{
		{"commit", commit},
		{"built", date},
		{"go", runtime.Version()},
		{"os/arch", runtime.GOOS + "/" + runtime.GOARCH},
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fields
	}

	fields = append(fields, [2]string{"module", info.Main.Path})

	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && s.Value != "" && commit == "unknown":
			fields = append(fields, [2]string{"vcs.rev", s.Value[:min(revisionWidth, len(s.Value))]})
		case s.Key == "vcs.modified" && s.Value == "true":
			fields = append(fields, [2]string{"modified", "true"})
		}
	}

	return fields
}

func versionString() string {
	var b strings.Builder

	b.WriteString("launchkit " + version + "\n")

	for _, f := range buildFields() {
		fmt.Fprintf(&b, "  %-10s %s\n", f[0]+":", f[1])
	}

	return b.String()
}
