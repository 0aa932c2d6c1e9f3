package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/api"
	"github.com/darmiel/paytrust/internal/service"
)

var authorizeOpts struct {
	merchant string
	method   string
	body     string
	raw      bool
}

var authorizeCmd = &cobra.Command{
	Use:   "authorize URL",
	Short: "Build the Authorization header for a platform API request",
	Long: `Signs an outbound platform API request with the merchant key and prints
the Authorization header together with the serial to send as Wechatpay-Serial.`,
	Example: `  paytrust authorize -c paytrust.yaml https://api.mch.weixin.qq.com/v3/certificates

  # POST with a body from a file
  paytrust authorize -c paytrust.yaml -X POST --body @order.json \
    https://api.mch.weixin.qq.com/v3/pay/transactions/jsapi`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := ""
		if authorizeOpts.body != "" {
			var err error
			if body, err = readInput(authorizeOpts.body); err != nil {
				return err
			}
		}

		var res *service.AuthorizeResponse
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			log.Debug().Str("url", args[0]).Msg("Requesting authorization...")
			var correlation string
			res, correlation, err = cli.Authorize(cmd.Context(), api.AuthorizePayload{
				MerchantID: authorizeOpts.merchant,
				Method:     authorizeOpts.method,
				URL:        args[0],
				Body:       body,
			})
			if err != nil {
				return logError(err, correlation, "authorizing request")
			}
		} else {
			trust, err := f.GetLocalService(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = trust.Close() }()

			merchantID := authorizeOpts.merchant
			if merchantID == "" {
				merchants := trust.Merchants()
				if len(merchants) != 1 {
					return fmt.Errorf("%d merchants configured, select one with --merchant", len(merchants))
				}
				merchantID = merchants[0].ID
			}
			res, err = trust.Authorize(service.AuthorizeRequest{
				MerchantID: merchantID,
				Method:     authorizeOpts.method,
				URL:        args[0],
				Body:       body,
			})
			if err != nil {
				return fmt.Errorf("authorizing request: %w", err)
			}
		}

		if authorizeOpts.raw {
			fmt.Println(res.Authorization)
			return nil
		}
		fmt.Printf("Authorization: %s\n", res.Authorization)
		fmt.Printf("Wechatpay-Serial: %s\n", res.Serial)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authorizeCmd)

	f.bindConfigFlag(authorizeCmd.Flags())
	authorizeCmd.Flags().StringVarP(&authorizeOpts.merchant, "merchant", "m", "", "Merchant id (optional locally with a single merchant)")
	authorizeCmd.Flags().StringVarP(&authorizeOpts.method, "method", "X", "GET", "HTTP method of the request")
	authorizeCmd.Flags().StringVarP(&authorizeOpts.body, "body", "d", "", "Request body (literal, @file or -)")
	authorizeCmd.Flags().BoolVarP(&authorizeOpts.raw, "raw", "r", false, "Output only the header value")
}
