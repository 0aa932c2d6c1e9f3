package service

import (
	"context"
	"fmt"

	"github.com/darmiel/paytrust/internal/audit"
	"github.com/darmiel/paytrust/internal/certdownload"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/refresh"
)

type BuildOptions struct {
	// Metrics is passed to the refresh service. Nil disables metrics.
	Metrics *refresh.Metrics

	// Client overrides the HTTP client used for certificate downloads.
	Client certdownload.Doer
}

// Build loads every merchant of cfg. Auto certificate sources perform their
// first download here, so Build fails fast if the platform is unreachable.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*TrustService, error) {
	auditor, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("creating auditor: %w", err)
	}

	refreshService := refresh.New(
		refresh.WithInterval(cfg.Refresh.Interval),
		refresh.WithMetrics(opts.Metrics),
	)

	merchants := make([]*Merchant, 0, len(cfg.Merchants))
	for _, mc := range cfg.Merchants {
		m, err := NewMerchant(ctx, mc, MerchantOptions{
			Refresh: refreshService,
			Client:  opts.Client,
		})
		if err != nil {
			refreshService.Shutdown()
			_ = auditor.Close()
			return nil, err
		}
		merchants = append(merchants, m)
	}

	return NewTrustService(merchants, refreshService, auditor, cfg.Refresh.MaxStale), nil
}
