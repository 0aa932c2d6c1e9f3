package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/audit"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/privacy"
	"github.com/darmiel/paytrust/internal/refresh"
	"github.com/darmiel/paytrust/internal/service/servicetest"
)

const plaintext = `{"mchid":"1900000001","out_trade_no":"1217752501201407033233368018","trade_state":"SUCCESS"}`

func newService(t *testing.T) (*TrustService, *servicetest.Platform, *audit.InMemoryAuditor) {
	t.Helper()
	p := servicetest.NewPlatform(t)
	m, err := NewMerchant(context.Background(), p.StaticMerchant(t, t.TempDir()), MerchantOptions{})
	require.NoError(t, err)

	auditor := audit.NewInMemoryAuditor(10)
	return NewTrustService([]*Merchant{m}, nil, auditor, 0), p, auditor
}

func TestParseNotification(t *testing.T) {
	svc, p, auditor := newService(t)
	body := p.Body(t, "TRANSACTION.SUCCESS", plaintext)

	n, err := svc.ParseNotification(context.Background(), NotificationRequest{
		CorrelationID: "req-1",
		MerchantID:    servicetest.MerchantID,
		Param:         p.Param(t, "", body),
	})
	require.NoError(t, err)
	assert.Equal(t, "TRANSACTION.SUCCESS", n.EventType)
	assert.JSONEq(t, plaintext, string(n.Plaintext))

	entries, err := auditor.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "req-1", entry.ID)
	assert.Equal(t, "notification.parse", entry.Action)
	assert.True(t, entry.Success)
	assert.Equal(t, "TRANSACTION.SUCCESS", entry.EventType)
	assert.Equal(t, "AEAD_AES_256_GCM", entry.Algorithm)
	assert.Equal(t, audit.Fingerprint(body), entry.BodyFingerprint)
	assert.NotContains(t, entry.BodyFingerprint, "ciphertext")
}

func TestParseNotificationRejected(t *testing.T) {
	svc, p, auditor := newService(t)
	body := p.Body(t, "TRANSACTION.SUCCESS", plaintext)

	tests := []struct {
		name   string
		param  func() core.RequestParam
		status int
		kind   string
	}{
		{
			name: "tampered body",
			param: func() core.RequestParam {
				param := p.Param(t, "", body)
				param.Body = strings.Replace(param.Body, "TRANSACTION.SUCCESS", "TRANSACTION.FAILED", 1)
				param.Message = strings.Replace(param.Message, "TRANSACTION.SUCCESS", "TRANSACTION.FAILED", 1)
				return param
			},
			status: http.StatusUnauthorized,
			kind:   KindValidation,
		},
		{
			name: "unknown serial",
			param: func() core.RequestParam {
				return p.Param(t, "FFFF", body)
			},
			status: http.StatusUnauthorized,
			kind:   KindValidation,
		},
		{
			name: "missing signature",
			param: func() core.RequestParam {
				param := p.Param(t, "", body)
				param.Signature = ""
				return param
			},
			status: http.StatusUnauthorized,
			kind:   KindValidation,
		},
		{
			name: "not json",
			param: func() core.RequestParam {
				return p.Param(t, "", "not json")
			},
			status: http.StatusBadRequest,
			kind:   KindMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ParseNotification(context.Background(), NotificationRequest{
				MerchantID: servicetest.MerchantID,
				Param:      tt.param(),
			})
			require.Error(t, err)
			assert.Equal(t, tt.status, StatusFor(err))
			assert.Equal(t, tt.kind, Kind(err))

			entries, err := auditor.GetRecent(1)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.False(t, entries[0].Success)
			assert.Equal(t, tt.kind, entries[0].Kind)
		})
	}
}

func TestRejectedPlaintextStaysOutOfAuditAndLogs(t *testing.T) {
	svc, p, auditor := newService(t)
	const secret = "card=6222020200112233445 name=ZHANG SAN"
	body := p.Body(t, "TRANSACTION.SUCCESS", secret)

	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	_, err := svc.ParseNotification(ctx, NotificationRequest{
		MerchantID: servicetest.MerchantID,
		Param:      p.Param(t, "", body),
	})
	require.Error(t, err)
	assert.Equal(t, KindMalformed, Kind(err))
	assert.Contains(t, err.Error(), secret)

	entries, err := auditor.GetRecent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, KindMalformed, entries[0].Kind)
	assert.Contains(t, entries[0].Error, "not JSON")
	assert.NotContains(t, entries[0].Error, "6222020200112233445")
	assert.NotContains(t, entries[0].Error, "ZHANG SAN")

	assert.Contains(t, logs.String(), "rejected notification")
	assert.NotContains(t, logs.String(), "6222020200112233445")
}

func TestUnknownMerchant(t *testing.T) {
	svc, p, _ := newService(t)
	body := p.Body(t, "TRANSACTION.SUCCESS", plaintext)

	_, err := svc.ParseNotification(context.Background(), NotificationRequest{
		MerchantID: "nope",
		Param:      p.Param(t, "", body),
	})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, StatusFor(err))
}

func TestAuthorize(t *testing.T) {
	svc, _, _ := newService(t)

	res, err := svc.Authorize(AuthorizeRequest{
		MerchantID: servicetest.MerchantID,
		Method:     http.MethodPost,
		URL:        "https://api.mch.weixin.qq.com/v3/pay/transactions/jsapi",
		Body:       `{"amount":1}`,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Authorization, `WECHATPAY2-SHA256-RSA2048 mchid="1900000001",`))
	assert.Contains(t, res.Authorization, `serial_no="`+servicetest.MerchantSerial+`"`)
	assert.Equal(t, servicetest.PlatformSerial, res.Serial)
}

func TestCertificates(t *testing.T) {
	svc, p, _ := newService(t)

	sets := svc.Certificates()
	require.Len(t, sets, 1)
	set := sets[0]
	assert.Equal(t, servicetest.MerchantID, set.MerchantID)
	assert.Equal(t, config.CertificateSourceStatic, set.Source)
	assert.Nil(t, set.Refresh)
	require.Len(t, set.Certificates, 1)
	assert.Equal(t, p.Cert.Certificate.SerialNumber, set.Certificates[0].SerialNumber)
	assert.True(t, set.Certificates[0].Available)
}

func TestPublicKeyMerchant(t *testing.T) {
	const pubKeyID = "PUB_KEY_ID_0114232134912410000000000001"
	p := servicetest.NewPlatform(t)
	m, err := NewMerchant(context.Background(), p.PublicKeyMerchant(t, t.TempDir(), pubKeyID), MerchantOptions{})
	require.NoError(t, err)
	assert.Equal(t, SourcePublicKey, m.Source)
	assert.Empty(t, m.Certificates())

	svc := NewTrustService([]*Merchant{m}, nil, nil, 0)
	body := p.Body(t, "REFUND.SUCCESS", plaintext)
	n, err := svc.ParseNotification(context.Background(), NotificationRequest{
		MerchantID: servicetest.MerchantID,
		Param:      p.Param(t, pubKeyID, body),
	})
	require.NoError(t, err)
	assert.Equal(t, "REFUND.SUCCESS", n.EventType)

	enc, err := m.Encryptor()
	require.NoError(t, err)
	assert.Equal(t, pubKeyID, enc.SerialNumber())
	assert.Equal(t, privacy.AlgorithmRSAOAEP, enc.Algorithm())
}

func TestNewMerchantErrors(t *testing.T) {
	p := servicetest.NewPlatform(t)
	dir := t.TempDir()

	t.Run("auto without refresh service", func(t *testing.T) {
		cfg := p.StaticMerchant(t, dir)
		cfg.Certificates = &config.CertificateSourceConfig{Type: config.CertificateSourceAuto}
		_, err := NewMerchant(context.Background(), cfg, MerchantOptions{})
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("missing private key", func(t *testing.T) {
		cfg := p.StaticMerchant(t, dir)
		cfg.PrivateKeyPath = dir + "/missing.pem"
		_, err := NewMerchant(context.Background(), cfg, MerchantOptions{})
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("auto download failure", func(t *testing.T) {
		cfg := p.StaticMerchant(t, dir)
		cfg.Certificates = &config.CertificateSourceConfig{
			Type:   config.CertificateSourceAuto,
			Config: map[string]any{"base_url": "http://example.invalid"},
		}
		svc := refresh.New()
		t.Cleanup(svc.Shutdown)
		_, err := NewMerchant(context.Background(), cfg, MerchantOptions{
			Refresh: svc,
			Client:  failingClient{},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "initial certificate download")
		assert.False(t, svc.Task().Scheduled())
	})
}

type failingClient struct{}

func (failingClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestKindAndStatus(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{core.Validationf("bad"), KindValidation, http.StatusUnauthorized},
		{&core.MalformedMessageError{Reason: "bad"}, KindMalformed, http.StatusBadRequest},
		{&core.DecryptionError{Algorithm: "AEAD_AES_256_GCM"}, KindDecryption, http.StatusBadRequest},
		{core.Configurationf("bad"), KindConfiguration, http.StatusInternalServerError},
		{errors.New("boom"), KindInternal, http.StatusInternalServerError},
		{httpError(http.StatusTeapot, core.Validationf("x")), KindValidation, http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(tt.err))
			assert.Equal(t, tt.status, StatusFor(tt.err))
		})
	}
	assert.Empty(t, Kind(nil))
}
