package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/audit"
	"github.com/darmiel/paytrust/internal/certs/certstest"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/refresh"
	"github.com/darmiel/paytrust/internal/service/servicetest"
)

const rotatedSerial = "7E2B2C9AE9A1C0F5AA1B3E5E4D2C1B0A"

func buildAuto(t *testing.T, p *servicetest.Platform, mutate func(*config.MerchantConfig)) *TrustService {
	t.Helper()
	mc := p.AutoMerchant(t, t.TempDir(), p.CertificateServer(t))
	if mutate != nil {
		mutate(&mc)
	}
	cfg := &config.Config{
		Refresh:   config.RefreshConfig{Interval: time.Hour, MaxStale: 2 * time.Hour},
		Merchants: []config.MerchantConfig{mc},
		Audit:     config.AuditConfig{Enabled: true, Type: "memory"},
	}
	trust, err := Build(context.Background(), cfg, BuildOptions{
		Metrics: refresh.NewMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = trust.Close() })
	return trust
}

func TestBuildWithAutoCertificates(t *testing.T) {
	ctx := context.Background()
	p := servicetest.NewPlatform(t)
	trust := buildAuto(t, p, nil)

	m, err := trust.Merchant(servicetest.MerchantID)
	require.NoError(t, err)
	assert.Equal(t, config.CertificateSourceAuto, m.Source)
	assert.True(t, trust.Refresh().Task().Scheduled())
	assert.NoError(t, trust.Health())

	sets := trust.Certificates()
	require.Len(t, sets, 1)
	require.NotNil(t, sets[0].Refresh)
	assert.True(t, sets[0].Refresh.Registered)
	assert.Equal(t, []string{servicetest.PlatformSerial}, sets[0].Refresh.Serials)
	assert.Equal(t, servicetest.PlatformSerial, sets[0].Refresh.Available)
	require.Len(t, sets[0].Certificates, 1)
	assert.True(t, sets[0].Certificates[0].Available)

	body := p.Body(t, "TRANSACTION.SUCCESS", plaintext)
	n, err := trust.ParseNotification(ctx, NotificationRequest{
		CorrelationID: "req-auto",
		MerchantID:    servicetest.MerchantID,
		Param:         p.Param(t, "", body),
	})
	require.NoError(t, err)
	assert.JSONEq(t, plaintext, string(n.Plaintext))

	entries, err := trust.Auditor().(*audit.InMemoryAuditor).GetRecent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)

	res, err := trust.Authorize(AuthorizeRequest{
		MerchantID: servicetest.MerchantID,
		URL:        "https://api.mch.weixin.qq.com/v3/certificates",
	})
	require.NoError(t, err)
	assert.Equal(t, servicetest.PlatformSerial, res.Serial)

	t.Run("rotation", func(t *testing.T) {
		p.Rotate(t, rotatedSerial)
		body := p.Body(t, "TRANSACTION.SUCCESS", plaintext)

		_, err := trust.ParseNotification(ctx, NotificationRequest{
			MerchantID: servicetest.MerchantID,
			Param:      p.Param(t, "", body),
		})
		require.Error(t, err)
		assert.Equal(t, KindValidation, Kind(err))

		require.NoError(t, trust.Refresh().Refresh(ctx))

		_, err = trust.ParseNotification(ctx, NotificationRequest{
			MerchantID: servicetest.MerchantID,
			Param:      p.Param(t, "", body),
		})
		require.NoError(t, err)

		sets := trust.Certificates()
		require.Len(t, sets, 1)
		assert.Len(t, sets[0].Certificates, 2)
		assert.Equal(t, rotatedSerial, sets[0].Refresh.Available)
		assert.Zero(t, sets[0].Refresh.ConsecutiveFailures)

		res, err := trust.Authorize(AuthorizeRequest{
			MerchantID: servicetest.MerchantID,
			URL:        "https://api.mch.weixin.qq.com/v3/certificates",
		})
		require.NoError(t, err)
		assert.Equal(t, rotatedSerial, res.Serial)
	})
}

func TestBuildWithPinnedKeyAndAutoCertificates(t *testing.T) {
	const pubKeyID = "PUB_KEY_ID_0114232134912410000000000001"
	p := servicetest.NewPlatform(t)

	// the platform has issued a public key but still signs with its certificate
	pinned := certstest.NewRSA(t, "01", time.Now().Add(365*24*time.Hour))
	trust := buildAuto(t, p, func(mc *config.MerchantConfig) {
		mc.PublicKeyID = pubKeyID
		mc.PublicKeyPath = certstest.WriteFile(t, t.TempDir(), "pub_key.pem", pinned.PublicKeyPEM(t))
	})

	sets := trust.Certificates()
	require.Len(t, sets, 1)
	assert.Equal(t, config.CertificateSourceAuto, sets[0].Source)
	assert.Equal(t, pubKeyID, sets[0].PublicKeyID)
	require.NotNil(t, sets[0].Refresh)
	assert.Equal(t, []string{servicetest.PlatformSerial}, sets[0].Refresh.Serials)

	body := p.Body(t, "REFUND.SUCCESS", plaintext)
	n, err := trust.ParseNotification(context.Background(), NotificationRequest{
		MerchantID: servicetest.MerchantID,
		Param:      p.Param(t, "", body),
	})
	require.NoError(t, err)
	assert.Equal(t, "REFUND.SUCCESS", n.EventType)
}
