package client

import (
	"context"

	"github.com/darmiel/paytrust/internal/api"
	"github.com/darmiel/paytrust/internal/service"
)

// ListCertificates retrieves the platform certificates each merchant trusts.
func (c *Client) ListCertificates(ctx context.Context) ([]service.CertificateSet, string, error) {
	var res []service.CertificateSet
	correlation, err := c.get(ctx, c.url().
		setPath(api.CertificatesRoute).
		build(), &res)
	return res, correlation, err
}

// Authorize asks the server to sign an outbound request.
func (c *Client) Authorize(ctx context.Context, payload api.AuthorizePayload) (*service.AuthorizeResponse, string, error) {
	var res service.AuthorizeResponse
	correlation, err := c.post(ctx, c.url().
		setPath(api.AuthorizeRoute).
		build(), payload, &res)
	return &res, correlation, err
}
