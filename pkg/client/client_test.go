package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/api"
	"github.com/darmiel/paytrust/internal/api/middleware"
	"github.com/darmiel/paytrust/internal/audit"
	"github.com/darmiel/paytrust/internal/buildinfo"
	"github.com/darmiel/paytrust/internal/refresh"
	"github.com/darmiel/paytrust/internal/service"
	"github.com/darmiel/paytrust/internal/service/servicetest"
	"github.com/darmiel/paytrust/internal/tasks"
)

var adminKey = []byte("0123456789abcdef0123456789abcdef")

func newServer(t *testing.T) (string, *servicetest.Platform) {
	t.Helper()
	p := servicetest.NewPlatform(t)
	m, err := service.NewMerchant(context.Background(), p.StaticMerchant(t, t.TempDir()), service.MerchantOptions{})
	require.NoError(t, err)

	rs := refresh.New()
	t.Cleanup(rs.Shutdown)
	manager := tasks.NewManager()
	manager.Add(rs.Task())

	trust := service.NewTrustService([]*service.Merchant{m}, rs, audit.NewInMemoryAuditor(10), 0)
	srv := httptest.NewServer(api.NewServer(trust, manager, api.Options{}).Routes(adminKey))
	t.Cleanup(srv.Close)
	return srv.URL, p
}

func TestClient(t *testing.T) {
	baseURL, _ := newServer(t)
	ctx := context.Background()

	token, err := middleware.IssueAdminToken(adminKey, "test", time.Minute)
	require.NoError(t, err)
	c, err := New(baseURL, WithAuthToken(token))
	require.NoError(t, err)

	info, correlation, err := c.Info(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, correlation)
	assert.Equal(t, buildinfo.Version, info.Version)

	_, err = c.Health(ctx)
	require.NoError(t, err)

	list, _, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, refresh.TaskName, list[0].Name)

	sets, _, err := c.ListCertificates(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, servicetest.MerchantID, sets[0].MerchantID)

	res, _, err := c.Authorize(ctx, api.AuthorizePayload{
		MerchantID: servicetest.MerchantID,
		URL:        "https://api.mch.weixin.qq.com/v3/certificates",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Authorization, `mchid="1900000001"`)

	entries, _, err := c.ListAudits(ctx, ListAuditsOpts{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = c.TriggerTask(ctx, refresh.TaskName)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		st, _, err := c.GetTaskStatus(ctx, refresh.TaskName)
		return err == nil && st.Runs == 1 && !st.Running
	}, 2*time.Second, 10*time.Millisecond)

	_, _, err = c.GetTaskStatus(ctx, "nope")
	assert.Error(t, err)

	_, _, err = c.GetTaskLogs(ctx, "nope")
	var apiErr APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestClientWithoutToken(t *testing.T) {
	baseURL, _ := newServer(t)
	c, err := New(baseURL)
	require.NoError(t, err)

	_, _, err = c.ListCertificates(context.Background())
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestForwardNotification(t *testing.T) {
	baseURL, platform := newServer(t)
	c, err := New(baseURL)
	require.NoError(t, err)
	ctx := context.Background()

	body := platform.Body(t, "TRANSACTION.SUCCESS", `{"out_trade_no":"1217752501201407033233368018"}`)
	res, correlation, err := c.ForwardNotification(ctx, servicetest.MerchantID, platform.Headers(t, "", body), body)
	require.NoError(t, err)
	assert.NotEmpty(t, correlation)
	assert.Equal(t, "TRANSACTION.SUCCESS", res.EventType)
	assert.JSONEq(t, `{"out_trade_no":"1217752501201407033233368018"}`, string(res.Resource))

	t.Run("tampered", func(t *testing.T) {
		h := platform.Headers(t, "", body)
		_, _, err := c.ForwardNotification(ctx, servicetest.MerchantID, h, body+" ")
		var apiErr APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.StatusCode)
		assert.Equal(t, service.KindValidation, apiErr.Kind)
	})
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080")
	assert.Error(t, err)
}

func TestURLBuilder(t *testing.T) {
	c, err := New("http://localhost:8080/base/")
	require.NoError(t, err)
	got := c.url().
		setPath(api.LogsForTaskRoute).
		setPathParam("name", "certificate-refresh").
		addQueryParam("limit", 5).
		build()
	assert.Equal(t, "http://localhost:8080/base/v1/tasks/certificate-refresh/logs?limit=5", got)
}
