package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/terassyi/fbinstall/internal/converge"
	fbErrors "github.com/terassyi/fbinstall/internal/errors"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/printer"
	"github.com/terassyi/fbinstall/internal/resource"
	"github.com/terassyi/fbinstall/internal/state"
)

var (
	applyQuiet  bool
	applyOutput string
)

var applyCmd = &cobra.Command{
	Use:   "apply [manifests...]",
	Short: "Install Filebeat and converge the host to the desired state",
	Long: `Plan the installation for each resource and run the actions in order.
Actions that are already satisfied are left unchanged. The outcome of
every run is recorded in the state directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConverge(cmd, args, plan.LifecycleCreate)
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&applyQuiet, "quiet", "q", false, "Only print the final report")
	applyCmd.Flags().StringVarP(&applyOutput, "output", "o", "text", "Report format (text, json, yaml)")
}

// runConverge plans and executes lifecycle for every resource, recording
// each run in the state store. It stops at the first failing resource.
func runConverge(cmd *cobra.Command, args []string, lifecycle plan.Lifecycle) error {
	format, err := printer.ParseFormat(applyOutput)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(cmd.Context(), args)
	if err != nil {
		return err
	}

	providers := newProviders(env.info)
	if lifecycle == plan.LifecycleDelete && providers.DefaultPackageManager == "" {
		return fbErrors.NewUnsupportedPlatformError(env.info.Name, string(env.info.Family), "package removal")
	}

	store, err := state.NewStore(env.cfg.StateDir)
	if err != nil {
		return err
	}
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	out := cmd.OutOrStdout()
	p := printer.New(out, format, noColor)
	executor := converge.NewExecutor(providers, env.services)
	tally := &applyResults{}

	for _, res := range env.resources {
		pl, err := planFor(env, res, lifecycle)
		if err != nil {
			return err
		}

		pm := newProgressManager(out, applyQuiet || format != printer.FormatText)
		executor.SetEventHandler(func(e converge.Event) {
			pm.handleEvent(e, tally)
		})
		report, runErr := executor.Run(cmd.Context(), pl)
		pm.Wait()

		if lifecycle == plan.LifecycleDelete && runErr == nil {
			env.services.Release(res.Spec().ServiceName)
		}
		if err := store.Put(res.Name(), state.NewRecord(pl, report, runErr, time.Now())); err != nil {
			return err
		}
		if report != nil {
			if format == printer.FormatText {
				fmt.Fprintf(out, "\n%s %s\n", lifecycle, res.Name())
			}
			if err := p.Report(report); err != nil {
				return err
			}
		}
		if runErr != nil {
			return fmt.Errorf("%s %s: %w", lifecycle, res.Name(), runErr)
		}
	}

	if format == printer.FormatText && !applyQuiet {
		printApplySummary(out, tally)
	}
	return nil
}

func planFor(env *environment, res *resource.FilebeatInstall, lifecycle plan.Lifecycle) (*plan.Plan, error) {
	if lifecycle == plan.LifecycleDelete {
		return env.planner.Delete(res.Spec())
	}
	return env.planner.Create(res.Spec(), env.info)
}
