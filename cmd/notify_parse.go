package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/notification"
	"github.com/darmiel/paytrust/internal/service"
	"github.com/darmiel/paytrust/internal/signing"
)

var notifyParseOpts struct {
	merchant  string
	serial    string
	signature string
	timestamp string
	nonce     string
	signType  string
}

var notifyParseCmd = &cobra.Command{
	Use:   "parse BODY",
	Short: "Verify and decrypt a captured notification",
	Long: `Verifies the signature of a captured notification and prints the decrypted
resource. The Wechatpay-* headers of the original request are passed as flags.

With --server the notification is forwarded to a running server instead of
being parsed with the local merchant configuration.`,
	Example: `  paytrust notify parse -c paytrust.yaml \
    --serial 5157F09EFDC096DE15EBE81A47057A72 \
    --timestamp 1554208460 --nonce 593BEC0C930BF1AFEB40B4A08C8FB242 \
    --signature @signature.txt @notification.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readInput(args[0])
		if err != nil {
			return err
		}
		signature, err := readInput(notifyParseOpts.signature)
		if err != nil {
			return err
		}

		header := http.Header{}
		header.Set(notification.HeaderSerial, notifyParseOpts.serial)
		header.Set(notification.HeaderSignature, signature)
		header.Set(notification.HeaderTimestamp, notifyParseOpts.timestamp)
		header.Set(notification.HeaderNonce, notifyParseOpts.nonce)
		header.Set(notification.HeaderSignatureType, notifyParseOpts.signType)

		if f.Remote() {
			if notifyParseOpts.merchant == "" {
				return fmt.Errorf("--merchant is required when forwarding to a server")
			}
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			log.Debug().Str("merchant", notifyParseOpts.merchant).Msg("Forwarding notification...")
			res, correlation, err := cli.ForwardNotification(cmd.Context(), notifyParseOpts.merchant, header, body)
			if err != nil {
				return logError(err, correlation, "notification rejected")
			}
			printNotification(res.ID, res.EventType, res.Resource)
			return nil
		}

		trust, err := f.GetLocalService(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = trust.Close() }()

		merchantID := notifyParseOpts.merchant
		if merchantID == "" {
			merchants := trust.Merchants()
			if len(merchants) != 1 {
				return fmt.Errorf("%d merchants configured, select one with --merchant", len(merchants))
			}
			merchantID = merchants[0].ID
		}

		n, err := trust.ParseNotification(cmd.Context(), service.NotificationRequest{
			MerchantID: merchantID,
			Param:      notification.RequestParamFromHTTP(header, body),
		})
		if err != nil {
			fmt.Printf("%s %s (%s)\n", redCross, err, service.Kind(err))
			return fmt.Errorf("notification rejected")
		}
		printNotification(n.ID, n.EventType, n.Plaintext)
		return nil
	},
}

func printNotification(id, eventType string, resource json.RawMessage) {
	fmt.Printf("%s %s %s\n", greenCheck, bold(eventType), faint(id))

	var out bytes.Buffer
	if err := json.Indent(&out, resource, "", "  "); err != nil {
		fmt.Println(string(resource))
		return
	}
	fmt.Println(out.String())
}

func init() {
	notifyCmd.AddCommand(notifyParseCmd)

	f.bindConfigFlag(notifyParseCmd.Flags())
	fl := notifyParseCmd.Flags()
	fl.StringVarP(&notifyParseOpts.merchant, "merchant", "m", "", "Merchant id (optional locally with a single merchant)")
	fl.StringVar(&notifyParseOpts.serial, "serial", "", "Value of the Wechatpay-Serial header")
	fl.StringVar(&notifyParseOpts.signature, "signature", "", "Value of the Wechatpay-Signature header (literal, @file or -)")
	fl.StringVar(&notifyParseOpts.timestamp, "timestamp", "", "Value of the Wechatpay-Timestamp header")
	fl.StringVar(&notifyParseOpts.nonce, "nonce", "", "Value of the Wechatpay-Nonce header")
	fl.StringVar(&notifyParseOpts.signType, "sign-type", signing.SignTypeRSA, "Value of the Wechatpay-Signature-Type header")

	_ = notifyParseCmd.MarkFlagRequired("serial")
	_ = notifyParseCmd.MarkFlagRequired("signature")
	_ = notifyParseCmd.MarkFlagRequired("timestamp")
	_ = notifyParseCmd.MarkFlagRequired("nonce")
}
