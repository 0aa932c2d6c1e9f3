package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/emmansun/gmsm/sm2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/paytrust/internal/core"
)

const (
	// AlgorithmRSA is RSA PKCS#1 v1.5 over SHA-256.
	AlgorithmRSA = "SHA256-RSA2048"
	// AlgorithmSM2 is SM2 over SM3 with the default signer id.
	AlgorithmSM2 = "SM2-WITH-SM3"

	// SignTypePrefix prefixes the algorithm in sign types and authorization schemas.
	SignTypePrefix = "WECHATPAY2-"

	SignTypeRSA = SignTypePrefix + AlgorithmRSA
	SignTypeSM2 = SignTypePrefix + AlgorithmSM2

	// FamilyRSA and FamilySM2 name the certificate sets served by the platform
	// (the algorithm_type query parameter of the certificate endpoint).
	FamilyRSA = "RSA"
	FamilySM2 = "SM2"
)

// scheme is one signature algorithm. Signer and Verifier are thin wrappers
// that select a scheme by its token once, at construction.
type scheme interface {
	name() string
	family() string
	checkPrivateKey(key crypto.PrivateKey) error
	checkPublicKey(key crypto.PublicKey) error
	sign(key crypto.PrivateKey, message []byte) ([]byte, error)
	verify(key crypto.PublicKey, message, signature []byte) bool
}

var schemes = map[string]scheme{
	AlgorithmRSA: rsaScheme{},
	AlgorithmSM2: sm2Scheme{},
}

func lookup(algorithm string) (scheme, error) {
	s, ok := schemes[algorithm]
	if !ok {
		return nil, core.Configurationf("unsupported signature algorithm %q", algorithm)
	}
	return s, nil
}

// Algorithms returns all supported algorithm tokens.
func Algorithms() []string {
	return []string{AlgorithmRSA, AlgorithmSM2}
}

// SignType returns the sign type token for an algorithm, e.g. "WECHATPAY2-SHA256-RSA2048".
func SignType(algorithm string) string {
	return SignTypePrefix + algorithm
}

// Family returns the certificate family ("RSA", "SM2") of an algorithm.
func Family(algorithm string) (string, error) {
	s, err := lookup(algorithm)
	if err != nil {
		return "", err
	}
	return s.family(), nil
}

type rsaScheme struct{}

func (rsaScheme) name() string   { return AlgorithmRSA }
func (rsaScheme) family() string { return FamilyRSA }

func (rsaScheme) checkPrivateKey(key crypto.PrivateKey) error {
	if _, ok := key.(*rsa.PrivateKey); !ok {
		return core.Configurationf("%s expects an *rsa.PrivateKey, got %T", AlgorithmRSA, key)
	}
	return nil
}

func (rsaScheme) checkPublicKey(key crypto.PublicKey) error {
	if _, ok := key.(*rsa.PublicKey); !ok {
		return core.Configurationf("%s expects an *rsa.PublicKey, got %T", AlgorithmRSA, key)
	}
	return nil
}

func (rsaScheme) sign(key crypto.PrivateKey, message []byte) ([]byte, error) {
	return jwt.SigningMethodRS256.Sign(string(message), key)
}

func (rsaScheme) verify(key crypto.PublicKey, message, signature []byte) bool {
	return jwt.SigningMethodRS256.Verify(string(message), signature, key) == nil
}

type sm2Scheme struct{}

func (sm2Scheme) name() string   { return AlgorithmSM2 }
func (sm2Scheme) family() string { return FamilySM2 }

func (sm2Scheme) checkPrivateKey(key crypto.PrivateKey) error {
	if _, ok := key.(*sm2.PrivateKey); !ok {
		return core.Configurationf("%s expects an *sm2.PrivateKey, got %T", AlgorithmSM2, key)
	}
	return nil
}

func (sm2Scheme) checkPublicKey(key crypto.PublicKey) error {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != sm2.P256() {
		return core.Configurationf("%s expects an SM2 *ecdsa.PublicKey, got %T", AlgorithmSM2, key)
	}
	return nil
}

func (sm2Scheme) sign(key crypto.PrivateKey, message []byte) ([]byte, error) {
	priv, ok := key.(*sm2.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", key)
	}
	// DefaultSM2SignerOpts hashes Z(A)||message with SM3 using the default uid
	return priv.Sign(rand.Reader, message, sm2.DefaultSM2SignerOpts)
}

func (sm2Scheme) verify(key crypto.PublicKey, message, signature []byte) bool {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return false
	}
	return sm2.VerifyASN1WithSM2(pub, nil, message, signature)
}
