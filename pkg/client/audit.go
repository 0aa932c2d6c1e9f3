package client

import (
	"context"

	"github.com/darmiel/paytrust/internal/api"
	"github.com/darmiel/paytrust/internal/core"
)

type ListAuditsOpts struct {
	Limit uint

	CorrelationID string
	SerialNumber  string
	Fingerprint   string
	Kind          string
}

// ListAudits retrieves the latest audit entries from the server.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.SerialNumber != "" {
		ub = ub.addQueryParam("serial", opts.SerialNumber)
	}
	if opts.Fingerprint != "" {
		ub = ub.addQueryParam("fingerprint", opts.Fingerprint)
	}
	if opts.Kind != "" {
		ub = ub.addQueryParam("kind", opts.Kind)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}
