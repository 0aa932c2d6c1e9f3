package cmd

import (
	"github.com/spf13/cobra"
)

// Command groups without behavior of their own.
var (
	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Check the notification audit log of a running server",
	}
	certsCmd = &cobra.Command{
		Use:     "certs",
		Aliases: []string{"certificates"},
		Short:   "List and download platform certificates",
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Check a merchant configuration file",
	}
	notifyCmd = &cobra.Command{
		Use:     "notify",
		Aliases: []string{"notification"},
		Short:   "Verify and decrypt platform notifications",
	}
	tasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and trigger background tasks of a running server",
	}
)

func init() {
	rootCmd.AddCommand(auditCmd, certsCmd, configCmd, notifyCmd, tasksCmd)
}
