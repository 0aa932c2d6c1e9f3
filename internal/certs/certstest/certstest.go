// Package certstest creates throwaway keys and certificates for tests.
package certstest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emmansun/gmsm/sm2"

	"github.com/darmiel/paytrust/internal/core"
)

// RSA is a generated RSA key with a self-signed certificate.
type RSA struct {
	Key         *rsa.PrivateKey
	Certificate core.Certificate
	PEM         []byte
}

// NewRSA generates a 2048 bit key and a self-signed certificate with the
// given hex serial and expiry.
func NewRSA(t testing.TB, serial string, notAfter time.Time) RSA {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating rsa key: %v", err)
	}

	n, ok := new(big.Int).SetString(serial, 16)
	if !ok {
		t.Fatalf("serial %q is not hex", serial)
	}
	tmpl := &x509.Certificate{
		SerialNumber: n,
		Subject:      pkix.Name{CommonName: "Tenpay.com Root CA"},
		NotBefore:    notAfter.Add(-365 * 24 * time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}

	return RSA{
		Key: key,
		Certificate: core.Certificate{
			SerialNumber: core.NormalizeSerial(serial),
			PublicKey:    &key.PublicKey,
			NotAfter:     tmpl.NotAfter,
			Raw:          der,
		},
		PEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}
}

// SM2 is a generated SM2 key with a certificate record (no DER).
type SM2 struct {
	Key         *sm2.PrivateKey
	Certificate core.Certificate
}

func NewSM2(t testing.TB, serial string, notAfter time.Time) SM2 {
	t.Helper()

	key, err := sm2.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating sm2 key: %v", err)
	}
	return SM2{
		Key: key,
		Certificate: core.Certificate{
			SerialNumber: core.NormalizeSerial(serial),
			PublicKey:    &key.PublicKey,
			NotAfter:     notAfter,
		},
	}
}

// KeyPEM returns the private key as a PKCS#1 PEM block.
func (r RSA) KeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(r.Key)})
}

// PublicKeyPEM returns the public key as a PKIX PEM block.
func (r RSA) PublicKeyPEM(t testing.TB) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&r.Key.PublicKey)
	if err != nil {
		t.Fatalf("marshalling public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// WriteFile writes data below dir and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}
