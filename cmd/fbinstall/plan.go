package main

import (
	"github.com/spf13/cobra"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/printer"
)

var (
	planDelete bool
	planOutput string
)

var planCmd = &cobra.Command{
	Use:   "plan [manifests...]",
	Short: "Show the actions apply would run",
	Long: `Show the installation strategy and the ordered actions apply would run
for each resource. Nothing on the host is changed.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planDelete, "delete", false, "Show the removal plan instead")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "text", "Output format (text, json, yaml)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := printer.ParseFormat(planOutput)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(cmd.Context(), args)
	if err != nil {
		return err
	}

	p := printer.New(cmd.OutOrStdout(), format, noColor)
	for _, res := range env.resources {
		var pl *plan.Plan
		if planDelete {
			pl, err = env.planner.Delete(res.Spec())
		} else {
			pl, err = env.planner.Create(res.Spec(), env.info)
		}
		if err != nil {
			return err
		}
		if err := p.Plan(pl); err != nil {
			return err
		}
	}
	return nil
}
