package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/service"
)

var privacyMerchant string

// privacyCmd represents the privacy command
var privacyCmd = &cobra.Command{
	Use:   "privacy",
	Short: "Encrypt and decrypt sensitive request fields",
	Long: `Sensitive fields such as names or phone numbers are encrypted with the
platform public key before they are sent, and the platform encrypts the ones it
returns with the merchant key. Both directions use the local configuration.`,
}

var privacyEncryptCmd = &cobra.Command{
	Use:     "encrypt VALUE",
	Short:   "Encrypt a value for the platform",
	Example: `  paytrust privacy encrypt -c paytrust.yaml "Zhang San"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := readInput(args[0])
		if err != nil {
			return err
		}
		m, done, err := localMerchant(cmd)
		if err != nil {
			return err
		}
		defer done()

		enc, err := m.Encryptor()
		if err != nil {
			return err
		}
		ciphertext, err := enc.Encrypt(value)
		if err != nil {
			return fmt.Errorf("encrypting: %w", err)
		}
		fmt.Println(ciphertext)
		fmt.Println(faint(fmt.Sprintf("algorithm %s, send with Wechatpay-Serial: %s", enc.Algorithm(), enc.SerialNumber())))
		return nil
	},
}

var privacyDecryptCmd = &cobra.Command{
	Use:   "decrypt CIPHERTEXT",
	Short: "Decrypt a value returned by the platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ciphertext, err := readInput(args[0])
		if err != nil {
			return err
		}
		m, done, err := localMerchant(cmd)
		if err != nil {
			return err
		}
		defer done()

		plaintext, err := m.Decryptor.Decrypt(ciphertext)
		if err != nil {
			return fmt.Errorf("decrypting: %w", err)
		}
		fmt.Println(plaintext)
		return nil
	},
}

// localMerchant loads the configured merchants and selects one by --merchant.
// done releases the loaded service.
func localMerchant(cmd *cobra.Command) (*service.Merchant, func(), error) {
	trust, err := f.GetLocalService(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	done := func() { _ = trust.Close() }

	if privacyMerchant == "" {
		merchants := trust.Merchants()
		if len(merchants) != 1 {
			done()
			return nil, nil, fmt.Errorf("%d merchants configured, select one with --merchant", len(merchants))
		}
		return merchants[0], done, nil
	}
	m, err := trust.Merchant(privacyMerchant)
	if err != nil {
		done()
		return nil, nil, err
	}
	return m, done, nil
}

func init() {
	rootCmd.AddCommand(privacyCmd)
	privacyCmd.AddCommand(privacyEncryptCmd, privacyDecryptCmd)

	f.bindConfigFlag(privacyCmd.PersistentFlags())
	privacyCmd.PersistentFlags().StringVarP(&privacyMerchant, "merchant", "m", "", "Merchant id (optional with a single merchant)")
}
