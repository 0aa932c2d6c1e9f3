package signing

import (
	"crypto"
	"encoding/base64"
	"fmt"

	"github.com/darmiel/paytrust/internal/core"
)

var _ core.Signer = (*Signer)(nil)

// Signer signs with a single private key whose certificate serial is known.
type Signer struct {
	scheme scheme
	serial string
	key    crypto.PrivateKey
}

// NewSigner validates that key fits algorithm. A mismatch is a configuration
// error: nothing this signer would produce could ever be verified.
func NewSigner(algorithm, serial string, key crypto.PrivateKey) (*Signer, error) {
	s, err := lookup(algorithm)
	if err != nil {
		return nil, err
	}
	if serial == "" {
		return nil, core.Configurationf("signer for %s requires a certificate serial number", algorithm)
	}
	if err := s.checkPrivateKey(key); err != nil {
		return nil, err
	}
	return &Signer{
		scheme: s,
		serial: serial,
		key:    key,
	}, nil
}

func (s *Signer) Sign(message string) (core.SignatureResult, error) {
	sig, err := s.scheme.sign(s.key, []byte(message))
	if err != nil {
		return core.SignatureResult{}, fmt.Errorf("signing with %s: %w", s.scheme.name(), err)
	}
	return core.SignatureResult{
		Signature:    base64.StdEncoding.EncodeToString(sig),
		SerialNumber: s.serial,
	}, nil
}

func (s *Signer) Algorithm() string {
	return s.scheme.name()
}

func (s *Signer) SerialNumber() string {
	return s.serial
}
