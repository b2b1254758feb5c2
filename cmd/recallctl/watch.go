package main

import (
	"context"
	"fmt"

	rcron "github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/oceanbase/agentrecall-go/pkg/core"
)

func newWatchCmd(a *app) *cobra.Command {
	var workspace, schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log workspace metrics on a schedule until interrupted",
		Long:  longWatch,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workspace == "" {
				return fmt.Errorf("--workspace is required")
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			client, err := core.NewClient(cfg, core.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer client.Close()

			return a.watch(cmd.Context(), client, workspace, schedule)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&schedule, "schedule", "@every 1m", "cron schedule (seconds field allowed)")

	return cmd
}

// watch logs a metrics snapshot on every tick of schedule until ctx is done.
func (a *app) watch(ctx context.Context, client *core.Client, workspace, schedule string) error {
	c := rcron.New(rcron.WithSeconds())

	_, err := c.AddFunc(schedule, func() {
		metrics, err := client.Bridge().GetMemoryMetrics(ctx, workspace)
		if err != nil {
			a.logger.Error("metrics snapshot failed", "workspace", workspace, "err", err)
			return
		}
		a.logger.Info("metrics",
			"workspace", workspace,
			"memories", metrics.TotalMemories,
			"avgRecallPriority", fmt.Sprintf("%.1f", metrics.AvgRecallPriority),
			"unresolvedSignals", metrics.UnresolvedSignals,
		)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	a.logger.Info("watching workspace", "workspace", workspace, "schedule", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info("watch stopped")

	return nil
}

var longWatch = `
Periodically log a metrics snapshot of one workspace.

Examples:
  recallctl watch --workspace acme --schedule "@every 30s"
  recallctl watch --workspace acme --schedule "0 */5 * * * *"
`
