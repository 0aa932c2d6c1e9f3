package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/audit"
)

var fingerprintRaw bool

var fingerprintCmd = &cobra.Command{
	Use:     "fingerprint BODY",
	Aliases: []string{"fp"},
	Short:   `Calculate the fingerprint of a notification body`,
	Long: `Calculates the fingerprint of a raw notification body (SHA256 -> Base64).
This is the value stored in PayTrust's audit log in the 'body_fingerprint' field.

The body is hashed byte for byte; a trailing newline changes the fingerprint.`,
	Example: `  # fingerprint of a captured notification
  paytrust fingerprint @notification.json

  # from stdin
  cat notification.json | paytrust fingerprint -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readInput(args[0])
		if err != nil {
			return err
		}
		if body == "" {
			return fmt.Errorf("body cannot be empty")
		}

		fp := audit.Fingerprint(body)
		if fingerprintRaw {
			fmt.Println(fp)
		} else {
			fmt.Println("Fingerprint:", fp)
			fmt.Println(faint("search with: paytrust audit log --fingerprint " + fp))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)

	fingerprintCmd.Flags().BoolVarP(&fingerprintRaw, "raw", "r", false,
		"Output only the fingerprint value without additional text")
}
