package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/tasks"
)

var tasksLogsOpts struct {
	tail  int
	level string
}

var tasksLogsCmd = &cobra.Command{
	Use:     "logs NAME",
	Short:   "Show the log of the last run of a background task",
	Example: `  paytrust tasks logs certificate-refresh --level warn`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" {
			return fmt.Errorf("task name cannot be empty")
		}
		minLevel, err := zerolog.ParseLevel(tasksLogsOpts.level)
		if err != nil {
			return fmt.Errorf("invalid --level: %w", err)
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving logs for task '%s'...", name)
		logs, correlation, err := cli.GetTaskLogs(cmd.Context(), name)
		if err != nil {
			return logError(err, correlation, "retrieving task logs")
		}

		logs = filterLogs(logs, minLevel)
		if tail := tasksLogsOpts.tail; tail > 0 && len(logs) > tail {
			logs = logs[len(logs)-tail:]
		}
		if len(logs) == 0 {
			log.Info().Msgf("No log entries for task '%s'", name)
			return nil
		}

		for _, entry := range logs {
			fmt.Printf("%s %s %s\n", faint(entry.Time.Local().Format("15:04:05")), levelTag(entry.Level), entry.Message)
		}
		return nil
	},
}

func filterLogs(logs []tasks.LogEntry, minLevel zerolog.Level) []tasks.LogEntry {
	out := logs[:0:0]
	for _, e := range logs {
		level, err := zerolog.ParseLevel(e.Level)
		if err != nil || level >= minLevel {
			out = append(out, e)
		}
	}
	return out
}

func levelTag(level string) string {
	switch level {
	case "debug":
		return faint("DBG")
	case "info":
		return color.GreenString("INF")
	case "warn":
		return color.YellowString("WRN")
	case "error":
		return color.RedString("ERR")
	default:
		return level
	}
}

func init() {
	tasksCmd.AddCommand(tasksLogsCmd)

	tasksLogsCmd.Flags().IntVarP(&tasksLogsOpts.tail, "tail", "n", 0, "Only show the last n entries")
	tasksLogsCmd.Flags().StringVarP(&tasksLogsOpts.level, "level", "l", "debug", "Minimum level to show")
}
