// Package certdownload fetches platform certificates from the certificate
// endpoint. A Downloader's Download method is a refresh.Downloader.
package certdownload

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/buildinfo"
	"github.com/darmiel/paytrust/internal/certs"
	"github.com/darmiel/paytrust/internal/cipher"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/credential"
	"github.com/darmiel/paytrust/internal/signing"
)

const (
	CertificatesPath = "/v3/certificates"

	maxResponseBytes = 1 << 20
)

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	// BaseURL of the platform API, e.g. "https://api.mch.weixin.qq.com".
	BaseURL string

	// Algorithm of the certificates to download (signing.AlgorithmRSA or
	// signing.AlgorithmSM2). Selects the algorithm_type query parameter.
	Algorithm string

	// Credential signs the request.
	Credential *credential.Credential

	// Ciphers decrypt encrypt_certificate entries by algorithm.
	Ciphers cipher.Registry

	// PublicKey and PublicKeyID pin the platform public key. The response is
	// accepted when signed by the pinned key or by one of the certificates it
	// carries, so a merchant rotating between the two keeps downloading.
	PublicKey   crypto.PublicKey
	PublicKeyID string

	// Client defaults to an *http.Client with Timeout.
	Client  Doer
	Timeout time.Duration
}

type Downloader struct {
	url         *url.URL
	algorithm   string
	credential  *credential.Credential
	ciphers     cipher.Registry
	publicKey   crypto.PublicKey
	publicKeyID string
	client      Doer
}

func New(opts Options) (*Downloader, error) {
	family, err := signing.Family(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if opts.Credential == nil {
		return nil, core.Configurationf("certificate download requires a credential")
	}
	if len(opts.Ciphers) == 0 {
		return nil, core.Configurationf("certificate download requires at least one cipher")
	}
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + CertificatesPath)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, core.Configurationf("invalid base url %q", opts.BaseURL)
	}
	u.RawQuery = url.Values{"algorithm_type": {family}}.Encode()
	if opts.PublicKey != nil {
		if _, err := signing.NewVerifier(signing.VerifierConfig{
			Algorithm:   opts.Algorithm,
			PublicKey:   opts.PublicKey,
			PublicKeyID: opts.PublicKeyID,
		}); err != nil {
			return nil, err
		}
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Downloader{
		url:         u,
		algorithm:   opts.Algorithm,
		credential:  opts.Credential,
		ciphers:     opts.Ciphers,
		publicKey:   opts.PublicKey,
		publicKeyID: opts.PublicKeyID,
		client:      client,
	}, nil
}

// URL is the certificate endpoint this downloader queries.
func (d *Downloader) URL() string {
	return d.url.String()
}

type response struct {
	Data []struct {
		SerialNo           string `json:"serial_no"`
		EffectiveTime      string `json:"effective_time"`
		ExpireTime         string `json:"expire_time"`
		EncryptCertificate struct {
			Algorithm      string `json:"algorithm"`
			Nonce          string `json:"nonce"`
			AssociatedData string `json:"associated_data"`
			Ciphertext     string `json:"ciphertext"`
		} `json:"encrypt_certificate"`
	} `json:"data"`
}

// Download fetches, authenticates and decrypts the current certificate set.
func (d *Downloader) Download(ctx context.Context) ([]core.Certificate, error) {
	authorization, err := d.credential.Authorization(d.url, http.MethodGet, "")
	if err != nil {
		return nil, fmt.Errorf("signing certificate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating certificate request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting certificates: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading certificate response: %w", err)
	}
	body := string(raw)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("certificate endpoint returned %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &core.MalformedMessageError{Reason: "certificate response is not valid JSON", Text: truncate(body, 256), Err: err}
	}

	certificates := make([]core.Certificate, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		enc := item.EncryptCertificate
		c, ok := d.ciphers.Get(enc.Algorithm)
		if !ok {
			return nil, &core.MalformedMessageError{Reason: fmt.Sprintf("no cipher for certificate algorithm '%s'", enc.Algorithm)}
		}
		pemText, err := cipher.DecryptToString(c, enc.AssociatedData, enc.Nonce, enc.Ciphertext)
		if err != nil {
			return nil, fmt.Errorf("decrypting certificate %s: %w", item.SerialNo, err)
		}
		cert, err := certs.ParsePEM([]byte(pemText))
		if err != nil {
			return nil, fmt.Errorf("certificate %s: %w", item.SerialNo, err)
		}
		if cert.SerialNumber != core.NormalizeSerial(item.SerialNo) {
			return nil, fmt.Errorf("certificate serial %s does not match announced serial %s", cert.SerialNumber, item.SerialNo)
		}
		certificates = append(certificates, cert)
	}

	if err := d.validate(resp.Header, body, certificates); err != nil {
		return nil, err
	}

	log.Debug().
		Str("url", d.url.String()).
		Int("certificates", len(certificates)).
		Msg("downloaded platform certificates")
	return certificates, nil
}

func (d *Downloader) validate(h http.Header, body string, certificates []core.Certificate) error {
	cfg := signing.VerifierConfig{
		Algorithm:   d.algorithm,
		PublicKey:   d.publicKey,
		PublicKeyID: d.publicKeyID,
	}
	if len(certificates) > 0 {
		provider, err := certs.NewStatic(certificates)
		if err != nil {
			return err
		}
		cfg.Provider = provider
	} else if d.publicKey == nil {
		return fmt.Errorf("certificate response contains no certificates")
	}
	verifier, err := signing.NewVerifier(cfg)
	if err != nil {
		return err
	}
	if err := credential.NewValidator(verifier).Validate(h, body); err != nil {
		return fmt.Errorf("validating certificate response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
