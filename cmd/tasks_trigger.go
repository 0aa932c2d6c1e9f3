package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/tasks"
	"github.com/darmiel/paytrust/pkg/client"
)

var tasksTriggerOpts struct {
	wait    bool
	timeout time.Duration
}

var tasksTriggerCmd = &cobra.Command{
	Use:   "trigger NAME",
	Short: "Manually trigger a background task",
	Long: `Triggers a background task, e.g. 'certificate-refresh' to download the
platform certificates of all auto merchants now. With --wait the command blocks
until the run finished and fails if the run failed.`,
	Example: `  paytrust tasks trigger certificate-refresh --wait`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" {
			return fmt.Errorf("task name cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		var before int
		if tasksTriggerOpts.wait {
			st, correlation, err := cli.GetTaskStatus(cmd.Context(), name)
			if err != nil {
				return logError(err, correlation, "retrieving task status")
			}
			before = st.Runs
		}

		log.Debug().Msgf("Triggering task '%s'...", name)
		if correlation, err := cli.TriggerTask(cmd.Context(), name); err != nil {
			return logError(err, correlation, "triggering task")
		}
		log.Info().Msgf("%s triggered task '%s'", greenCheck, bold(name))

		if !tasksTriggerOpts.wait {
			log.Info().Msgf("Run '%s' to see progress.", color.CyanString("paytrust tasks logs "+name))
			return nil
		}

		st, err := waitForRun(cmd.Context(), cli, name, before, tasksTriggerOpts.timeout)
		if err != nil {
			return err
		}
		if st.LastResult != "success" {
			log.Error().Str("result", st.LastResult).Msgf("%s task '%s' failed", redCross, name)
			return fmt.Errorf("task '%s' %s", name, st.LastResult)
		}
		log.Info().Msgf("%s task '%s' finished successfully", greenCheck, name)
		return nil
	},
}

// waitForRun polls until the task completed more than before runs.
func waitForRun(ctx context.Context, cli *client.Client, name string, before int, timeout time.Duration) (*tasks.TaskStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for task '%s': %w", name, ctx.Err())
		case <-ticker.C:
		}
		st, correlation, err := cli.GetTaskStatus(ctx, name)
		if err != nil {
			return nil, logError(err, correlation, "retrieving task status")
		}
		if st.Runs > before && !st.Running {
			return st, nil
		}
	}
}

func init() {
	tasksCmd.AddCommand(tasksTriggerCmd)

	tasksTriggerCmd.Flags().BoolVarP(&tasksTriggerOpts.wait, "wait", "w", false, "Wait for the run to finish")
	tasksTriggerCmd.Flags().DurationVar(&tasksTriggerOpts.timeout, "wait-timeout", 2*time.Minute, "Maximum time to wait with --wait")
}
