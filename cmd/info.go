package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/buildinfo"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the version of the CLI or of a running server",
	Long: `Without --server, prints the build information of this binary. With --server,
prints the build information of the server and whether its platform
certificates are fresh.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if f.serverAddr() == "" {
			info := buildinfo.GetBuildInfo()
			printInfo(&info)
			return nil
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		log.Debug().Msg("Fetching build info from server...")
		info, correlation, err := cli.Info(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to get info from server")
		}
		printInfo(info)

		health := greenCheck + " healthy"
		if _, err := cli.Health(cmd.Context()); err != nil {
			health = redCross + " " + err.Error()
		}
		fmt.Printf("  %-18s %s\n", faint("Health:"), health)
		return nil
	},
}

func printInfo(info *buildinfo.Info) {
	fmt.Println(bold("\n── " + info.Service + " ──"))
	fmt.Printf("  %-18s %s\n", faint("Version:"), info.Version)
	fmt.Printf("  %-18s %s\n", faint("Commit:"), info.CommitHash)
	if info.GoVersion != "" {
		fmt.Printf("  %-18s %s\n", faint("Go:"), info.GoVersion)
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
