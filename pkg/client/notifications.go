package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/darmiel/paytrust/internal/api"
)

// ForwardNotification replays a platform notification against the server.
// header must carry the Wechatpay-* headers of the original request.
func (c *Client) ForwardNotification(
	ctx context.Context,
	merchantID string,
	header http.Header,
	body string,
) (*api.NotificationResponse, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url().
		setPath(api.NotificationRoute).
		setPathParam("merchant", merchantID).
		build(), strings.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	var res api.NotificationResponse
	correlation, err := c.do(req, &res)
	if err != nil {
		return nil, correlation, err
	}
	return &res, correlation, nil
}
