package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/terassyi/fbinstall/internal/config"
)

var (
	configDir string
	logLevel  string
	noColor   bool

	platformName    string
	platformFamily  string
	platformVersion string

	filebeatVersion string
	serviceName     string
)

var rootCmd = &cobra.Command{
	Use:   "fbinstall",
	Short: "Install and converge Filebeat on the local host",
	Long: `fbinstall installs Filebeat the way the host platform expects it.

It picks one installation strategy per platform:
  macOS              Homebrew package and a launchd daemon
  Windows            Elastic zip archive and a Windows service
  Debian/RHEL/Fedora Elastic package repository with a pinned version

Desired state is read from CUE or YAML manifests. Without manifests a
default resource is used.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "Configuration directory (default: "+config.DefaultConfigDir()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.PersistentFlags().StringVar(&platformName, "platform-name", "", "Override the detected platform name")
	rootCmd.PersistentFlags().StringVar(&platformFamily, "platform-family", "", "Override the detected platform family")
	rootCmd.PersistentFlags().StringVar(&platformVersion, "platform-version", "", "Override the detected platform version")

	rootCmd.PersistentFlags().StringVar(&filebeatVersion, "filebeat-version", "", "Override the desired Filebeat version")
	rootCmd.PersistentFlags().StringVar(&serviceName, "service-name", "", "Override the desired service name")

	rootCmd.AddCommand(
		versionCmd,
		planCmd,
		applyCmd,
		deleteCmd,
		statusCmd,
	)
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if noColor {
		color.NoColor = true
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(logLevel))); err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func getConfigDir() string {
	if configDir != "" {
		return configDir
	}
	return config.DefaultConfigDir()
}
