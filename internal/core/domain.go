package core

import (
	"crypto"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Certificate is a platform certificate as seen by the trust core.
// It is produced once (by a downloader or a static list) and never mutated.
type Certificate struct {
	// SerialNumber is the canonical upper-case hex serial, see NormalizeSerial.
	SerialNumber string `json:"serial_number"`

	// PublicKey is the key embedded in the certificate (*rsa.PublicKey or an SM2 *ecdsa.PublicKey).
	PublicKey crypto.PublicKey `json:"-"`

	// NotAfter is the end of the validity period.
	NotAfter time.Time `json:"not_after"`

	// Raw holds the DER bytes the certificate was built from, if any.
	Raw []byte `json:"-"`
}

// RegistryKey identifies one certificate set: the owner (merchant id) and the
// algorithm family the certificates belong to (e.g. "RSA", "SM2").
type RegistryKey struct {
	OwnerID   string `json:"owner_id"`
	Algorithm string `json:"algorithm"`
}

func (k RegistryKey) String() string {
	return k.OwnerID + "-" + k.Algorithm
}

// SignatureResult is the output of a Signer.
type SignatureResult struct {
	// Signature is the base64 (std) encoded signature.
	Signature string `json:"signature"`

	// SerialNumber identifies the certificate of the signing key.
	SerialNumber string `json:"serial_number"`
}

// RequestParam carries everything needed to validate one inbound notification.
type RequestParam struct {
	// SignType selects the verifier, e.g. "WECHATPAY2-SHA256-RSA2048".
	SignType string

	// SerialNumber is the serial (or public key id) the platform signed with.
	SerialNumber string

	// Message is the exact string that was signed (timestamp\nnonce\nbody\n).
	Message string

	// Signature is the base64 signature over Message.
	Signature string

	// Body is the raw JSON envelope.
	Body string
}

func (p RequestParam) String() string {
	return fmt.Sprintf("RequestParam{signType=%s, serial=%s, bodyLength=%d}",
		p.SignType, p.SerialNumber, len(p.Body))
}

// NormalizeSerial returns the canonical form used for serial lookups.
// Hex serials are compared numerically (leading zeros and case are ignored),
// anything else (e.g. public key ids) is compared verbatim.
func NormalizeSerial(serial string) string {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return ""
	}
	if n, ok := new(big.Int).SetString(serial, 16); ok {
		return fmt.Sprintf("%X", n)
	}
	return serial
}

// LatestCertificate returns the certificate with the latest NotAfter.
// All certificates are assumed to be usable; no expiry filtering is applied.
func LatestCertificate(certs []Certificate) (Certificate, bool) {
	var (
		latest Certificate
		found  bool
	)
	for _, c := range certs {
		if !found || c.NotAfter.After(latest.NotAfter) {
			latest = c
			found = true
		}
	}
	return latest, found
}
