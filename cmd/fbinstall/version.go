package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo contains version information for the binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
			GoVersion: runtime.Version(),
			Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		}

		switch versionFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "text":
			cmd.Printf("fbinstall %s (%s, built %s, %s %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return nil
		default:
			return fmt.Errorf("unsupported output format %q", versionFormat)
		}
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionFormat, "output", "o", "text", "Output format (text, json)")
}
