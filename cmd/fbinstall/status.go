package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terassyi/fbinstall/internal/config"
	"github.com/terassyi/fbinstall/internal/printer"
	"github.com/terassyi/fbinstall/internal/state"
)

var (
	statusOutput string
	statusWide   bool
)

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show the last recorded run for each resource",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format (text, json, yaml)")
	statusCmd.Flags().BoolVar(&statusWide, "wide", false, "Show platform and service columns")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := printer.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(getConfigDir())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return err
	}
	st, err := store.LoadReadOnly()
	if err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	}
	return printer.New(cmd.OutOrStdout(), format, noColor).State(st, name, statusWide)
}
