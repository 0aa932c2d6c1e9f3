package certdownload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/certs/certstest"
	"github.com/darmiel/paytrust/internal/cipher"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/credential"
	"github.com/darmiel/paytrust/internal/notification"
	"github.com/darmiel/paytrust/internal/signing"
)

const apiV3Key = "0123456789abcdef0123456789abcdef"

type platform struct {
	t        *testing.T
	cert     certstest.RSA
	ciphers  cipher.Registry
	status   int
	tamper   bool
	lastAuth string
	lastURL  string
}

func (p *platform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.lastAuth = r.Header.Get("Authorization")
	p.lastURL = r.URL.String()

	if p.status != 0 {
		w.WriteHeader(p.status)
		_, _ = w.Write([]byte(`{"code":"SIGN_ERROR","message":"signature error"}`))
		return
	}

	c, _ := p.ciphers.Get(cipher.AlgorithmAES256GCM)
	ct, err := cipher.EncryptToString(c, "certificate", "61f9fcd09a2b", string(p.cert.PEM))
	require.NoError(p.t, err)

	body, err := json.Marshal(map[string]any{
		"data": []map[string]any{{
			"serial_no":      p.cert.Certificate.SerialNumber,
			"effective_time": "2018-06-08T10:34:56+08:00",
			"expire_time":    "2028-12-08T10:34:56+08:00",
			"encrypt_certificate": map[string]any{
				"algorithm":       cipher.AlgorithmAES256GCM,
				"nonce":           "61f9fcd09a2b",
				"associated_data": "certificate",
				"ciphertext":      ct,
			},
		}},
	})
	require.NoError(p.t, err)

	signer, err := signing.NewSigner(signing.AlgorithmRSA, p.cert.Certificate.SerialNumber, p.cert.Key)
	require.NoError(p.t, err)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := "4f0a3a8e0e6f4c1c9d6ff3c3b0c1a2b3"
	res, err := signer.Sign(notification.Message(timestamp, nonce, string(body)))
	require.NoError(p.t, err)

	sig := res.Signature
	if p.tamper {
		sig = "AAAA" + sig[4:]
	}
	w.Header().Set(notification.HeaderSerial, res.SerialNumber)
	w.Header().Set(notification.HeaderSignature, sig)
	w.Header().Set(notification.HeaderTimestamp, timestamp)
	w.Header().Set(notification.HeaderNonce, nonce)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func setup(t *testing.T) (*platform, Options) {
	t.Helper()

	ciphers, err := cipher.BuildRegistry([]config.CipherConfig{{Algorithm: cipher.AlgorithmAES256GCM, Key: apiV3Key}})
	require.NoError(t, err)

	p := &platform{
		t:       t,
		cert:    certstest.NewRSA(t, "5157F09EFDC096DE15EBE81A47057A72", time.Now().Add(30*24*time.Hour)),
		ciphers: ciphers,
	}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	merchant := certstest.NewRSA(t, "0A0B", time.Now().Add(time.Hour))
	signer, err := signing.NewSigner(signing.AlgorithmRSA, merchant.Certificate.SerialNumber, merchant.Key)
	require.NoError(t, err)
	cred, err := credential.New("1900000001", signer)
	require.NoError(t, err)

	return p, Options{
		BaseURL:    srv.URL,
		Algorithm:  signing.AlgorithmRSA,
		Credential: cred,
		Ciphers:    ciphers,
		Client:     srv.Client(),
	}
}

func TestDownload(t *testing.T) {
	p, opts := setup(t)
	d, err := New(opts)
	require.NoError(t, err)

	list, err := d.Download(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.cert.Certificate.SerialNumber, list[0].SerialNumber)
	assert.Equal(t, p.cert.Certificate.Raw, list[0].Raw)

	assert.Equal(t, "/v3/certificates?algorithm_type=RSA", p.lastURL)
	assert.True(t, strings.HasPrefix(p.lastAuth, `WECHATPAY2-SHA256-RSA2048 mchid="1900000001",`), p.lastAuth)
	assert.True(t, strings.HasSuffix(d.URL(), "/v3/certificates?algorithm_type=RSA"))
}

func TestDownloadWithPinnedKey(t *testing.T) {
	p, opts := setup(t)
	opts.PublicKey = &p.cert.Key.PublicKey
	opts.PublicKeyID = p.cert.Certificate.SerialNumber

	d, err := New(opts)
	require.NoError(t, err)
	_, err = d.Download(context.Background())
	require.NoError(t, err)

	t.Run("wrong pinned key", func(t *testing.T) {
		other := certstest.NewRSA(t, "01", time.Now().Add(time.Hour))
		o := opts
		o.PublicKey = &other.Key.PublicKey

		d, err := New(o)
		require.NoError(t, err)
		_, err = d.Download(context.Background())
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("response signed by certificate during rotation", func(t *testing.T) {
		pinned := certstest.NewRSA(t, "02", time.Now().Add(time.Hour))
		o := opts
		o.PublicKey = &pinned.Key.PublicKey
		o.PublicKeyID = "PUB_KEY_ID_0114232134912410000000000000"

		d, err := New(o)
		require.NoError(t, err)
		list, err := d.Download(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, p.cert.Certificate.SerialNumber, list[0].SerialNumber)
	})

	t.Run("tampered during rotation", func(t *testing.T) {
		p.tamper = true
		defer func() { p.tamper = false }()

		pinned := certstest.NewRSA(t, "03", time.Now().Add(time.Hour))
		o := opts
		o.PublicKey = &pinned.Key.PublicKey
		o.PublicKeyID = "PUB_KEY_ID_0114232134912410000000000000"

		d, err := New(o)
		require.NoError(t, err)
		_, err = d.Download(context.Background())
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestDownloadTamperedSignature(t *testing.T) {
	p, opts := setup(t)
	p.tamper = true

	d, err := New(opts)
	require.NoError(t, err)
	_, err = d.Download(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestDownloadWrongAPIv3Key(t *testing.T) {
	_, opts := setup(t)
	wrong, err := cipher.BuildRegistry([]config.CipherConfig{{Algorithm: cipher.AlgorithmAES256GCM, Key: strings.Repeat("x", 32)}})
	require.NoError(t, err)
	opts.Ciphers = wrong

	d, err := New(opts)
	require.NoError(t, err)
	_, err = d.Download(context.Background())
	assert.ErrorIs(t, err, core.ErrDecryption)
}

func TestDownloadErrorStatus(t *testing.T) {
	p, opts := setup(t)
	p.status = http.StatusUnauthorized

	d, err := New(opts)
	require.NoError(t, err)
	_, err = d.Download(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "SIGN_ERROR")
}

func TestNewErrors(t *testing.T) {
	_, opts := setup(t)
	pinned := certstest.NewRSA(t, "04", time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"unknown algorithm", func(o *Options) { o.Algorithm = "nope" }},
		{"no credential", func(o *Options) { o.Credential = nil }},
		{"no ciphers", func(o *Options) { o.Ciphers = nil }},
		{"bad base url", func(o *Options) { o.BaseURL = "not a url" }},
		{"pinned key without id", func(o *Options) { o.PublicKey = &pinned.Key.PublicKey }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := opts
			tt.mutate(&o)
			_, err := New(o)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}
