// Package servicetest writes merchant key material to disk and plays the
// platform side of a notification exchange and of the certificate endpoint.
package servicetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/darmiel/paytrust/internal/certdownload"
	"github.com/darmiel/paytrust/internal/certs/certstest"
	"github.com/darmiel/paytrust/internal/cipher"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/notification"
	"github.com/darmiel/paytrust/internal/signing"
)

const (
	MerchantID     = "1900000001"
	MerchantSerial = "3775B6A45ACD588826D15E583A95F5DD"
	APIv3Key       = "0123456789abcdef0123456789abcdef"
	PlatformSerial = "5157F09EFDC096DE15EBE81A47057A72"
)

// Platform signs and encrypts notifications like the payment platform does.
// Cert is the certificate currently signing; Rotate replaces it.
type Platform struct {
	Cert     certstest.RSA
	Merchant certstest.RSA

	mu     sync.Mutex
	issued []certstest.RSA
	signer *signing.Signer
	cipher core.AeadCipher
}

func NewPlatform(t testing.TB) *Platform {
	t.Helper()
	cert := certstest.NewRSA(t, PlatformSerial, time.Now().Add(30*24*time.Hour))
	signer, err := signing.NewSigner(signing.AlgorithmRSA, cert.Certificate.SerialNumber, cert.Key)
	if err != nil {
		t.Fatalf("creating platform signer: %v", err)
	}
	c, err := cipher.New(cipher.AlgorithmAES256GCM, []byte(APIv3Key))
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}
	return &Platform{
		Cert:     cert,
		Merchant: certstest.NewRSA(t, MerchantSerial, time.Now().Add(365*24*time.Hour)),
		issued:   []certstest.RSA{cert},
		signer:   signer,
		cipher:   c,
	}
}

// Rotate issues a platform certificate expiring after the current one. From
// then on messages are signed with it and the certificate endpoint serves it
// next to the previous certificates.
func (p *Platform) Rotate(t testing.TB, serial string) certstest.RSA {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	cert := certstest.NewRSA(t, serial, p.Cert.Certificate.NotAfter.Add(30*24*time.Hour))
	signer, err := signing.NewSigner(signing.AlgorithmRSA, cert.Certificate.SerialNumber, cert.Key)
	if err != nil {
		t.Fatalf("creating platform signer: %v", err)
	}
	p.Cert = cert
	p.signer = signer
	p.issued = append(p.issued, cert)
	return cert
}

// StaticMerchant writes the key files to dir and returns a merchant config
// that trusts the platform certificate.
func (p *Platform) StaticMerchant(t testing.TB, dir string) config.MerchantConfig {
	t.Helper()
	return config.MerchantConfig{
		ID:             MerchantID,
		SerialNumber:   MerchantSerial,
		PrivateKeyPath: certstest.WriteFile(t, dir, "apiclient_key.pem", p.Merchant.KeyPEM()),
		APIv3Key:       APIv3Key,
		Algorithm:      signing.AlgorithmRSA,
		Certificates: &config.CertificateSourceConfig{
			Type: config.CertificateSourceStatic,
			Config: map[string]any{
				"paths": []any{certstest.WriteFile(t, dir, "platform_cert.pem", p.Cert.PEM)},
			},
		},
	}
}

// PublicKeyMerchant is like StaticMerchant but pins the platform public key
// under publicKeyID instead of trusting certificates.
func (p *Platform) PublicKeyMerchant(t testing.TB, dir, publicKeyID string) config.MerchantConfig {
	t.Helper()
	cfg := p.StaticMerchant(t, dir)
	cfg.Certificates = nil
	cfg.PublicKeyID = publicKeyID
	cfg.PublicKeyPath = certstest.WriteFile(t, dir, "pub_key.pem", p.Cert.PublicKeyPEM(t))
	return cfg
}

// AutoMerchant is like StaticMerchant but downloads the platform certificates
// from baseURL, usually the URL returned by CertificateServer.
func (p *Platform) AutoMerchant(t testing.TB, dir, baseURL string) config.MerchantConfig {
	t.Helper()
	cfg := p.StaticMerchant(t, dir)
	cfg.Certificates = &config.CertificateSourceConfig{
		Type:   config.CertificateSourceAuto,
		Config: map[string]any{"base_url": baseURL},
	}
	return cfg
}

// CertificateServer starts the certificate endpoint and returns its base URL.
// Every issued certificate is served encrypted with the api v3 key and the
// response is signed with the current certificate.
func (p *Platform) CertificateServer(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(p.serveCertificates))
	t.Cleanup(srv.Close)
	return srv.URL
}

func (p *Platform) serveCertificates(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != certdownload.CertificatesPath {
		http.NotFound(w, r)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "WECHATPAY2-") {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"SIGN_ERROR","message":"missing authorization"}`))
		return
	}

	p.mu.Lock()
	issued := append([]certstest.RSA(nil), p.issued...)
	signer := p.signer
	p.mu.Unlock()

	const (
		nonce = "61f9fcd09a2b"
		ad    = "certificate"
	)
	data := make([]map[string]any, 0, len(issued))
	for _, cert := range issued {
		ct, err := cipher.EncryptToString(p.cipher, ad, nonce, string(cert.PEM))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data = append(data, map[string]any{
			"serial_no":      cert.Certificate.SerialNumber,
			"effective_time": time.Now().Add(-time.Hour).Format(time.RFC3339),
			"expire_time":    cert.Certificate.NotAfter.Format(time.RFC3339),
			"encrypt_certificate": map[string]any{
				"algorithm":       cipher.AlgorithmAES256GCM,
				"nonce":           nonce,
				"associated_data": ad,
				"ciphertext":      ct,
			},
		})
	}
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	requestNonce := "4f0a3a8e0e6f4c1c9d6ff3c3b0c1a2b3"
	res, err := signer.Sign(notification.Message(timestamp, requestNonce, string(body)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(notification.HeaderSerial, res.SerialNumber)
	w.Header().Set(notification.HeaderSignature, res.Signature)
	w.Header().Set(notification.HeaderTimestamp, timestamp)
	w.Header().Set(notification.HeaderNonce, requestNonce)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// Body encrypts plaintext into a notification envelope.
func (p *Platform) Body(t testing.TB, eventType, plaintext string) string {
	t.Helper()
	const (
		nonce = "fdasflkja484"
		ad    = "transaction"
	)
	ct, err := cipher.EncryptToString(p.cipher, ad, nonce, plaintext)
	if err != nil {
		t.Fatalf("encrypting resource: %v", err)
	}
	body, err := json.Marshal(map[string]any{
		"id":            "EV-2018022511223320873",
		"create_time":   "2015-05-20T13:29:35+08:00",
		"resource_type": "encrypt-resource",
		"event_type":    eventType,
		"summary":       "payment succeeded",
		"resource": map[string]any{
			"algorithm":       cipher.AlgorithmAES256GCM,
			"ciphertext":      ct,
			"associated_data": ad,
			"nonce":           nonce,
			"original_type":   "transaction",
		},
	})
	if err != nil {
		t.Fatalf("marshalling envelope: %v", err)
	}
	return string(body)
}

// Headers signs body and returns the notification headers.
func (p *Platform) Headers(t testing.TB, serial, body string) http.Header {
	t.Helper()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := "593BEC0C930BF1AFEB40B4A08C8FB242"
	p.mu.Lock()
	signer := p.signer
	p.mu.Unlock()
	res, err := signer.Sign(notification.Message(timestamp, nonce, body))
	if err != nil {
		t.Fatalf("signing notification: %v", err)
	}
	if serial == "" {
		serial = res.SerialNumber
	}
	h := http.Header{}
	h.Set(notification.HeaderSerial, serial)
	h.Set(notification.HeaderSignature, res.Signature)
	h.Set(notification.HeaderSignatureType, signing.SignType(signing.AlgorithmRSA))
	h.Set(notification.HeaderTimestamp, timestamp)
	h.Set(notification.HeaderNonce, nonce)
	return h
}

// Param is Headers turned into a request param.
func (p *Platform) Param(t testing.TB, serial, body string) core.RequestParam {
	t.Helper()
	return notification.RequestParamFromHTTP(p.Headers(t, serial, body), body)
}
