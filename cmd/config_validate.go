package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/config"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parses the configuration and checks every merchant entry. Key files are
not read; use 'paytrust certs list' to load them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			log.Error().Err(err).Msg("Configuration is invalid.")
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Merchant", "Algorithm", "Certificates", "Public Key"})
		for _, m := range cfg.Merchants {
			source := faint("(none)")
			if m.Certificates != nil {
				source = m.Certificates.Type
				if m.Certificates.Type == config.CertificateSourceAuto {
					if opts, err := m.Certificates.Auto(); err == nil {
						source = fmt.Sprintf("auto (%s)", opts.BaseURL)
					}
				}
			}
			pub := faint("(none)")
			if m.PublicKeyID != "" {
				pub = m.PublicKeyID
			}
			t.AppendRow(table.Row{bold(m.ID), m.Algorithm, source, pub})
		}
		applyTableFormat(t)
		t.Render()

		log.Info().Msgf("%s Configuration is valid.", greenCheck)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)

	f.bindConfigFlag(configValidateCmd.Flags())
}
