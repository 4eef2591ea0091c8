package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var triggers = []string{"warnings", "followups", "escalations", "replies"}

var runCmd = &cobra.Command{
	Use:       "run {warnings|followups|escalations|replies}",
	Short:     "Run one workflow trigger and exit",
	Long:      "Runs a single scan and prints its summary as JSON. Suited to cron or a Kubernetes CronJob.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: triggers,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "run")
		if err != nil {
			return err
		}
		defer a.close()

		out, err := a.runTrigger(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// runTrigger dispatches one named trigger and returns its summary.
func (a *app) runTrigger(ctx context.Context, name string) (any, error) {
	switch name {
	case "warnings":
		return a.lifecycle.SendPendingWarnings(ctx)
	case "followups":
		return a.lifecycle.RunFollowUpScan(ctx)
	case "escalations":
		return a.lifecycle.RunEscalationScan(ctx)
	case "replies":
		return a.correlator.ProcessInbox(ctx)
	default:
		return nil, fmt.Errorf("unknown trigger %q", name)
	}
}

// trigger adapts runTrigger to a scheduler job and logs the summary.
func (a *app) trigger(name string) func(context.Context) error {
	return func(ctx context.Context) error {
		out, err := a.runTrigger(ctx, name)
		if err != nil {
			return err
		}
		a.log.Info().Str("trigger", name).Interface("summary", out).Msg("trigger finished")
		return nil
	}
}
