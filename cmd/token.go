package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/api/middleware"
	"github.com/darmiel/paytrust/internal/cliconfig"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
	tokenSave    bool
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin session token",
	Long: `Signs an admin session token with the server.admin_key of the configuration.
Pass it to remote commands via PAYTRUST_TOKEN, or store it for the server
given by --server with --save.`,
	Example: `  export PAYTRUST_TOKEN=$(paytrust token -c paytrust.yaml --raw)
  paytrust --server http://localhost:8080 certs list

  # remember the token for this server
  paytrust token -c paytrust.yaml --server http://localhost:8080 --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		token, err := middleware.IssueAdminToken([]byte(cfg.Server.AdminKey), tokenSubject, tokenTTL)
		if err != nil {
			return err
		}

		if tokenSave {
			return saveToken(token)
		}
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Println(token)
			return nil
		}
		log.Info().
			Str("subject", tokenSubject).
			Str("expires_in", tokenTTL.String()).
			Msgf("%s issued admin token", greenCheck)
		fmt.Println(token)
		return nil
	},
}

func saveToken(token string) error {
	server := f.serverAddr()
	if server == "" {
		return fmt.Errorf("--save requires a server address (use --server or set PAYTRUST_ADDR)")
	}
	store, err := cliconfig.Load()
	if err != nil {
		return err
	}
	if err := store.SetCredential(server, &cliconfig.Credential{
		Token:     token,
		Subject:   tokenSubject,
		ExpiresAt: time.Now().Add(tokenTTL),
	}); err != nil {
		return err
	}
	if err := cliconfig.Save(store); err != nil {
		return err
	}
	log.Info().Str("server", server).Msgf("%s saved admin token", greenCheck)
	return nil
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	f.bindConfigFlag(tokenCmd.Flags())
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Subject recorded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Lifetime of the token")
	tokenCmd.Flags().BoolP("raw", "r", false, "Only print the token")
	tokenCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the token for the --server address")
}
