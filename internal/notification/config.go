package notification

import (
	"crypto"

	"github.com/darmiel/paytrust/internal/certs"
	"github.com/darmiel/paytrust/internal/cipher"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/signing"
)

// Config supplies one verifier and one cipher to a Parser.
type Config interface {
	SignType() string
	CipherType() string
	Verifier() core.Verifier
	Cipher() core.AeadCipher
}

// Options describe the trust material of one notification config.
// At least one of Certificates, Provider or PublicKey must be set; setting
// a public key together with certificates accepts both during a rotation.
type Options struct {
	// Algorithm is the signature algorithm token. Defaults to signing.AlgorithmRSA.
	Algorithm string

	// APIv3Key decrypts the notification resource.
	APIv3Key []byte

	// Certificates is a fixed list of platform certificates.
	Certificates []core.Certificate

	// Provider resolves platform certificates, e.g. a *certs.Auto.
	// It takes precedence over Certificates.
	Provider core.CertificateProvider

	PublicKey   crypto.PublicKey
	PublicKeyID string
}

var _ Config = (*StaticConfig)(nil)

// StaticConfig is a Config built once from Options.
type StaticConfig struct {
	signType   string
	cipherType string
	verifier   core.Verifier
	cipher     core.AeadCipher
}

// NewConfig builds the verifier and the cipher matching opts.Algorithm:
// RSA notifications are encrypted with AES-256-GCM, SM2 ones with SM4-GCM.
func NewConfig(opts Options) (*StaticConfig, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = signing.AlgorithmRSA
	}
	family, err := signing.Family(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if len(opts.APIv3Key) != cipher.APIv3KeyLength {
		return nil, core.Configurationf("api v3 key must be %d bytes, got %d", cipher.APIv3KeyLength, len(opts.APIv3Key))
	}

	provider := opts.Provider
	if provider == nil && len(opts.Certificates) > 0 {
		if provider, err = certs.NewStatic(opts.Certificates); err != nil {
			return nil, err
		}
	}

	verifier, err := signing.NewVerifier(signing.VerifierConfig{
		Algorithm:   opts.Algorithm,
		PublicKey:   opts.PublicKey,
		PublicKeyID: opts.PublicKeyID,
		Provider:    provider,
	})
	if err != nil {
		return nil, err
	}

	cipherType := cipher.AlgorithmAES256GCM
	if family == signing.FamilySM2 {
		cipherType = cipher.AlgorithmSM4GCM
	}
	c, err := cipher.New(cipherType, opts.APIv3Key)
	if err != nil {
		return nil, err
	}

	return &StaticConfig{
		signType:   signing.SignType(opts.Algorithm),
		cipherType: cipherType,
		verifier:   verifier,
		cipher:     c,
	}, nil
}

// RSAConfig is NewConfig for SHA256-RSA2048 signatures.
func RSAConfig(opts Options) (*StaticConfig, error) {
	opts.Algorithm = signing.AlgorithmRSA
	return NewConfig(opts)
}

// SMConfig is NewConfig for SM2-WITH-SM3 signatures.
func SMConfig(opts Options) (*StaticConfig, error) {
	opts.Algorithm = signing.AlgorithmSM2
	return NewConfig(opts)
}

func (c *StaticConfig) SignType() string        { return c.signType }
func (c *StaticConfig) CipherType() string      { return c.cipherType }
func (c *StaticConfig) Verifier() core.Verifier { return c.verifier }
func (c *StaticConfig) Cipher() core.AeadCipher { return c.cipher }
