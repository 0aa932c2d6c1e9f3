package cmd

import (
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/certdownload"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/refresh"
	"github.com/darmiel/paytrust/internal/service"
)

var certsDownloadOpts struct {
	merchant string
	baseURL  string
	outDir   string
	timeout  time.Duration
}

var certsDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the platform certificates of a merchant once",
	Long: `Downloads, authenticates and decrypts the platform certificates of one
merchant. With --out, every certificate is written as <serial>.pem so it can be
used by a "static" certificate source.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return err
		}
		mc, err := findMerchant(cfg, certsDownloadOpts.merchant)
		if err != nil {
			return err
		}

		rs := refresh.New()
		defer rs.Shutdown()

		m, err := service.NewMerchant(cmd.Context(), mc, service.MerchantOptions{Refresh: rs})
		if err != nil {
			return fmt.Errorf("loading merchant %s: %w", mc.ID, err)
		}
		downloader, err := m.NewDownloader(certdownload.Options{
			BaseURL: certsDownloadOpts.baseURL,
			Timeout: certsDownloadOpts.timeout,
		})
		if err != nil {
			return err
		}

		log.Debug().Str("url", downloader.URL()).Msg("Downloading certificates...")
		list, err := downloader.Download(cmd.Context())
		if err != nil {
			return fmt.Errorf("downloading certificates: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Serial", "Expires", "File"})
		for _, c := range list {
			file := faint("-")
			if certsDownloadOpts.outDir != "" {
				if file, err = writeCertificate(certsDownloadOpts.outDir, c); err != nil {
					return err
				}
			}
			t.AppendRow(table.Row{c.SerialNumber, c.NotAfter.Local().Format(time.DateOnly), file})
		}
		applyTableFormat(t)
		t.Render()

		if latest, ok := core.LatestCertificate(list); ok {
			fmt.Printf("%s latest certificate: %s\n", greenCheck, bold(latest.SerialNumber))
		}
		return nil
	},
}

// findMerchant returns the merchant with the given id. An empty id selects the
// only configured merchant.
func findMerchant(cfg *config.Config, id string) (config.MerchantConfig, error) {
	if id == "" {
		if len(cfg.Merchants) != 1 {
			return config.MerchantConfig{}, fmt.Errorf("%d merchants configured, select one with --merchant", len(cfg.Merchants))
		}
		return cfg.Merchants[0], nil
	}
	for _, m := range cfg.Merchants {
		if m.ID == id {
			return m, nil
		}
	}
	return config.MerchantConfig{}, fmt.Errorf("merchant %q not found in config", id)
}

func writeCertificate(dir string, c core.Certificate) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, c.SerialNumber+".pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func init() {
	certsCmd.AddCommand(certsDownloadCmd)

	f.bindConfigFlag(certsDownloadCmd.Flags())
	certsDownloadCmd.Flags().StringVarP(&certsDownloadOpts.merchant, "merchant", "m", "", "Merchant id (optional with a single merchant)")
	certsDownloadCmd.Flags().StringVar(&certsDownloadOpts.baseURL, "base-url", config.DefaultBaseURL, "Platform API base URL")
	certsDownloadCmd.Flags().StringVarP(&certsDownloadOpts.outDir, "out", "o", "", "Write the certificates as PEM files into this directory")
	certsDownloadCmd.Flags().DurationVar(&certsDownloadOpts.timeout, "request-timeout", 10*time.Second, "Request timeout")
}
