package service

import (
	"context"
	"crypto"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/certdownload"
	"github.com/darmiel/paytrust/internal/certs"
	"github.com/darmiel/paytrust/internal/cipher"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/credential"
	"github.com/darmiel/paytrust/internal/keyfile"
	"github.com/darmiel/paytrust/internal/notification"
	"github.com/darmiel/paytrust/internal/privacy"
	"github.com/darmiel/paytrust/internal/refresh"
	"github.com/darmiel/paytrust/internal/signing"
)

const SourcePublicKey = "public_key"

// CertificateLister is a provider that can enumerate what it holds.
// *certs.Static and *certs.Auto implement it.
type CertificateLister interface {
	core.CertificateProvider
	All() []core.Certificate
}

// Merchant is the runtime trust material of one configured merchant.
type Merchant struct {
	ID        string
	Algorithm string
	Source    string

	// Key is the refresh registry key, only meaningful for auto sources.
	Key core.RegistryKey

	Signer     *signing.Signer
	Credential *credential.Credential
	Ciphers    cipher.Registry
	Parser     *notification.Parser
	Validator  *credential.Validator
	Decryptor  *privacy.Decryptor

	provider    CertificateLister
	publicKey   crypto.PublicKey
	publicKeyID string
}

type MerchantOptions struct {
	// Refresh is required for merchants with an "auto" certificate source.
	Refresh *refresh.Service

	// Client overrides the HTTP client used for certificate downloads.
	Client certdownload.Doer
}

// NewMerchant loads the key material of cfg and wires its certificate source.
// Auto sources are registered with opts.Refresh, which downloads synchronously
// and fails if the first download fails.
func NewMerchant(ctx context.Context, cfg config.MerchantConfig, opts MerchantOptions) (*Merchant, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = signing.AlgorithmRSA
	}
	family, err := signing.Family(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	privateKey, err := keyfile.LoadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, core.Configurationf("merchant %s: %v", cfg.ID, err)
	}
	signer, err := signing.NewSigner(cfg.Algorithm, cfg.SerialNumber, privateKey)
	if err != nil {
		return nil, err
	}
	cred, err := credential.New(cfg.ID, signer)
	if err != nil {
		return nil, err
	}
	decryptor, err := privacy.NewDecryptor(privateKey)
	if err != nil {
		return nil, err
	}
	ciphers, err := cipher.BuildRegistry(cipher.MerchantCiphers(cfg.APIv3Key))
	if err != nil {
		return nil, err
	}

	m := &Merchant{
		ID:          cfg.ID,
		Algorithm:   cfg.Algorithm,
		Source:      SourcePublicKey,
		Key:         core.RegistryKey{OwnerID: cfg.ID, Algorithm: family},
		Signer:      signer,
		Credential:  cred,
		Ciphers:     ciphers,
		Decryptor:   decryptor,
		publicKeyID: cfg.PublicKeyID,
	}

	if cfg.PublicKeyPath != "" {
		if m.publicKey, err = keyfile.LoadPublicKey(cfg.PublicKeyPath); err != nil {
			return nil, core.Configurationf("merchant %s: %v", cfg.ID, err)
		}
	}

	if cfg.Certificates != nil {
		m.Source = cfg.Certificates.Type
		switch cfg.Certificates.Type {
		case config.CertificateSourceStatic:
			err = m.loadStatic(cfg.Certificates)
		case config.CertificateSourceAuto:
			err = m.registerAuto(ctx, cfg.Certificates, opts)
		default:
			err = core.Configurationf("unknown certificate source type '%s'", cfg.Certificates.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("merchant %s: %w", cfg.ID, err)
		}
	}

	nopts := notification.Options{
		Algorithm:   cfg.Algorithm,
		APIv3Key:    []byte(cfg.APIv3Key),
		PublicKey:   m.publicKey,
		PublicKeyID: m.publicKeyID,
	}
	if m.provider != nil {
		nopts.Provider = m.provider
	}
	ncfg, err := notification.NewConfig(nopts)
	if err != nil {
		return nil, fmt.Errorf("merchant %s: %w", cfg.ID, err)
	}
	if m.Parser, err = notification.New(ncfg); err != nil {
		return nil, err
	}
	m.Validator = credential.NewValidator(ncfg.Verifier())

	log.Info().
		Str("merchant", m.ID).
		Str("algorithm", m.Algorithm).
		Str("source", m.Source).
		Int("certificates", len(m.Certificates())).
		Msg("merchant loaded")
	return m, nil
}

func (m *Merchant) loadStatic(src *config.CertificateSourceConfig) error {
	opts, err := src.Static()
	if err != nil {
		return core.Configurationf("%v", err)
	}
	list, err := keyfile.LoadCertificates(opts.Paths)
	if err != nil {
		return core.Configurationf("%v", err)
	}
	provider, err := certs.NewStatic(list)
	if err != nil {
		return err
	}
	m.provider = provider
	return nil
}

func (m *Merchant) registerAuto(ctx context.Context, src *config.CertificateSourceConfig, opts MerchantOptions) error {
	if opts.Refresh == nil {
		return core.Configurationf("auto certificates require a refresh service")
	}
	autoOpts, err := src.Auto()
	if err != nil {
		return core.Configurationf("%v", err)
	}

	downloader, err := m.NewDownloader(certdownload.Options{
		BaseURL: autoOpts.BaseURL,
		Client:  opts.Client,
		Timeout: autoOpts.Timeout,
	})
	if err != nil {
		return err
	}
	if err := opts.Refresh.Register(ctx, m.Key, downloader.Download); err != nil {
		return err
	}
	m.provider = certs.NewAuto(opts.Refresh, m.Key)
	return nil
}

// NewDownloader builds a certificate downloader signing with this merchant's
// credential. BaseURL, Client and Timeout are taken from opts. The response is
// accepted when signed by a certificate it carries or by the pinned public key.
func (m *Merchant) NewDownloader(opts certdownload.Options) (*certdownload.Downloader, error) {
	opts.Algorithm = m.Algorithm
	opts.Credential = m.Credential
	opts.Ciphers = m.Ciphers
	opts.PublicKey = m.publicKey
	opts.PublicKeyID = m.publicKeyID
	return certdownload.New(opts)
}

// Certificates returns the platform certificates currently held for this merchant.
func (m *Merchant) Certificates() []core.Certificate {
	if m.provider == nil {
		return nil
	}
	return m.provider.All()
}

// AvailableCertificate returns the certificate with the latest expiry.
func (m *Merchant) AvailableCertificate() (core.Certificate, bool) {
	if m.provider == nil {
		return core.Certificate{}, false
	}
	return m.provider.AvailableCertificate()
}

func (m *Merchant) PublicKeyID() string {
	return m.publicKeyID
}

// Encryptor encrypts sensitive fields for the platform, preferring the
// pinned public key over the latest certificate.
func (m *Merchant) Encryptor() (*privacy.Encryptor, error) {
	if m.publicKey != nil {
		return privacy.NewEncryptor(m.publicKey, m.publicKeyID)
	}
	if m.provider == nil {
		return nil, core.Configurationf("merchant %s has no platform key", m.ID)
	}
	return privacy.NewEncryptorFromProvider(m.provider)
}
