// Package privacy encrypts sensitive request fields (names, phone numbers)
// for the platform and decrypts those the platform returns.
package privacy

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"

	"github.com/emmansun/gmsm/sm2"

	"github.com/darmiel/paytrust/internal/core"
)

const (
	AlgorithmRSAOAEP = "RSA-OAEP-SHA1"
	AlgorithmSM2     = "SM2"
)

// Encryptor encrypts with a platform public key. The platform needs the
// serial of that key in the Wechatpay-Serial header to decrypt.
type Encryptor struct {
	algorithm string
	key       crypto.PublicKey
	serial    string
}

// NewEncryptor selects RSA-OAEP (SHA-1) or SM2 by the key type.
func NewEncryptor(key crypto.PublicKey, serial string) (*Encryptor, error) {
	if serial == "" {
		return nil, core.Configurationf("privacy encryptor requires the platform serial")
	}
	algorithm, err := publicKeyAlgorithm(key)
	if err != nil {
		return nil, err
	}
	return &Encryptor{algorithm: algorithm, key: key, serial: serial}, nil
}

// NewEncryptorFromProvider uses the provider's latest certificate.
func NewEncryptorFromProvider(provider core.CertificateProvider) (*Encryptor, error) {
	cert, ok := provider.AvailableCertificate()
	if !ok {
		return nil, core.Configurationf("no platform certificate available for privacy encryption")
	}
	return NewEncryptor(cert.PublicKey, cert.SerialNumber)
}

func (e *Encryptor) Algorithm() string    { return e.algorithm }
func (e *Encryptor) SerialNumber() string { return e.serial }

// Encrypt returns the base64 ciphertext of plaintext.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	var (
		out []byte
		err error
	)
	switch key := e.key.(type) {
	case *rsa.PublicKey:
		out, err = rsa.EncryptOAEP(sha1.New(), rand.Reader, key, []byte(plaintext), nil)
	case *ecdsa.PublicKey:
		out, err = sm2.Encrypt(rand.Reader, key, []byte(plaintext), nil)
	}
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decryptor decrypts with the merchant private key.
type Decryptor struct {
	algorithm string
	key       crypto.PrivateKey
}

func NewDecryptor(key crypto.PrivateKey) (*Decryptor, error) {
	switch key.(type) {
	case *rsa.PrivateKey:
		return &Decryptor{algorithm: AlgorithmRSAOAEP, key: key}, nil
	case *sm2.PrivateKey:
		return &Decryptor{algorithm: AlgorithmSM2, key: key}, nil
	default:
		return nil, core.Configurationf("unsupported private key type %T", key)
	}
}

func (d *Decryptor) Algorithm() string { return d.algorithm }

func (d *Decryptor) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &core.MalformedMessageError{Reason: "ciphertext is not valid base64", Err: err}
	}
	var out []byte
	switch key := d.key.(type) {
	case *rsa.PrivateKey:
		out, err = rsa.DecryptOAEP(sha1.New(), rand.Reader, key, raw, nil)
	case *sm2.PrivateKey:
		out, err = sm2.Decrypt(key, raw)
	}
	if err != nil {
		return "", &core.DecryptionError{Algorithm: d.algorithm, Err: err}
	}
	return string(out), nil
}

func publicKeyAlgorithm(key crypto.PublicKey) (string, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return AlgorithmRSAOAEP, nil
	case *ecdsa.PublicKey:
		if k.Curve == sm2.P256() {
			return AlgorithmSM2, nil
		}
	}
	return "", core.Configurationf("unsupported public key type %T", key)
}
