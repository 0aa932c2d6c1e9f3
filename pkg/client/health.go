package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/darmiel/paytrust/internal/api"
)

// Health returns nil when the server reports healthy. A stale certificate set
// is returned as APIError with status 503.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url().
		setPath(api.HealthCheckRoute).
		build(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, nil)
}
