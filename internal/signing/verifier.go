package signing

import (
	"crypto"
	"encoding/base64"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/core"
)

var _ core.Verifier = (*Verifier)(nil)

// VerifierConfig describes where a Verifier finds its public keys.
// Both sources may be set at once (grace period while the platform rotates
// from certificates to a pinned public key).
type VerifierConfig struct {
	// Algorithm is the signature algorithm token, e.g. AlgorithmRSA.
	Algorithm string

	// PublicKey is an optional pinned platform public key.
	PublicKey crypto.PublicKey
	// PublicKeyID is the id the platform sends as serial when it signs with PublicKey.
	PublicKeyID string

	// Provider resolves certificate serials to public keys.
	Provider core.CertificateProvider
}

// Verifier checks platform signatures. Resolution order for a serial:
//  1. the pinned public key, if configured and serial equals PublicKeyID
//  2. the certificate provider, if configured; a miss yields false
//  3. otherwise false
//
// Certificate chains are not validated: keys are trusted because they were
// obtained through the authenticated certificate download, not because of
// their issuer.
type Verifier struct {
	scheme      scheme
	publicKey   crypto.PublicKey
	publicKeyID string
	provider    core.CertificateProvider
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	s, err := lookup(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.PublicKey == nil && cfg.Provider == nil {
		return nil, core.Configurationf("verifier for %s needs a public key or a certificate provider", cfg.Algorithm)
	}
	if cfg.PublicKey != nil {
		if cfg.PublicKeyID == "" {
			return nil, core.Configurationf("verifier for %s has a public key but no public key id", cfg.Algorithm)
		}
		if err := s.checkPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	}
	return &Verifier{
		scheme:      s,
		publicKey:   cfg.PublicKey,
		publicKeyID: cfg.PublicKeyID,
		provider:    cfg.Provider,
	}, nil
}

func (v *Verifier) Algorithm() string {
	return v.scheme.name()
}

func (v *Verifier) Verify(serial, message, signature string) bool {
	key, ok := v.resolve(serial)
	if !ok {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		log.Debug().
			Str("algorithm", v.scheme.name()).
			Str("serial", serial).
			Msg("signature is not valid base64")
		return false
	}
	return v.scheme.verify(key, []byte(message), sig)
}

func (v *Verifier) resolve(serial string) (crypto.PublicKey, bool) {
	if v.publicKey != nil && serial == v.publicKeyID {
		return v.publicKey, true
	}
	if v.provider == nil {
		log.Warn().
			Str("algorithm", v.scheme.name()).
			Str("serial", serial).
			Msg("serial does not match the pinned public key id and no certificate provider is configured")
		return nil, false
	}
	cert, ok := v.provider.Certificate(serial)
	if !ok {
		log.Warn().
			Str("algorithm", v.scheme.name()).
			Str("serial", serial).
			Msg("no platform certificate found for serial")
		return nil, false
	}
	if err := v.scheme.checkPublicKey(cert.PublicKey); err != nil {
		log.Error().Err(err).
			Str("algorithm", v.scheme.name()).
			Str("serial", serial).
			Msg("platform certificate key does not match verifier algorithm")
		return nil, false
	}
	return cert.PublicKey, true
}

// SerialNumber prefers the pinned public key id, then the provider's latest certificate.
func (v *Verifier) SerialNumber() string {
	if v.publicKey != nil {
		return v.publicKeyID
	}
	if cert, ok := v.provider.AvailableCertificate(); ok {
		return cert.SerialNumber
	}
	return ""
}
