package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/service"
)

var certsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the platform certificates every merchant trusts",
	Long: `Lists the certificates of a running server (--server) or, with --config,
loads the merchants locally. Local auto sources download once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sets []service.CertificateSet

		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			log.Debug().Msg("Retrieving certificates...")
			var correlation string
			if sets, correlation, err = cli.ListCertificates(cmd.Context()); err != nil {
				return logError(err, correlation, "listing certificates")
			}
		} else {
			trust, err := f.GetLocalService(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = trust.Close() }()
			sets = trust.Certificates()
		}

		printCertificateSets(sets)
		return nil
	},
}

func printCertificateSets(sets []service.CertificateSet) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Merchant", "Source", "Serial", "Expires", "Refresh"})

	for _, set := range sets {
		refreshState := faint("-")
		if st := set.Refresh; st != nil {
			if st.ConsecutiveFailures > 0 {
				refreshState = fmt.Sprintf("%s %d failure(s): %s", redCross, st.ConsecutiveFailures, truncate(st.LastError, 40))
			} else {
				refreshState = fmt.Sprintf("%s %s ago", greenCheck, time.Since(st.FetchedAt).Round(time.Second))
			}
		}

		if len(set.Certificates) == 0 && set.PublicKeyID != "" {
			t.AppendRow(table.Row{bold(set.MerchantID), set.Source, set.PublicKeyID, faint("(pinned key)"), refreshState})
			continue
		}
		for _, c := range set.Certificates {
			serial := c.SerialNumber
			if c.Available {
				serial = color.New(color.Bold).Sprint(serial) + " " + greenCheck
			}
			expires := c.NotAfter.Local().Format(time.DateOnly)
			if time.Until(c.NotAfter) < 30*24*time.Hour {
				expires = color.YellowString(expires)
			}
			t.AppendRow(table.Row{bold(set.MerchantID), set.Source, serial, expires, refreshState})
		}
	}

	applyTableFormat(t)
	t.Render()
}

func init() {
	certsCmd.AddCommand(certsListCmd)

	f.bindConfigFlag(certsListCmd.Flags())
}
