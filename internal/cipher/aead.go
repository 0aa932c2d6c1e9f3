package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"fmt"

	"github.com/emmansun/gmsm/sm3"
	"github.com/emmansun/gmsm/sm4"

	"github.com/darmiel/paytrust/internal/core"
)

const (
	// AlgorithmAES256GCM is AES-256 in GCM mode, keyed with the raw api v3 key.
	AlgorithmAES256GCM = "AEAD_AES_256_GCM"

	// AlgorithmSM4GCM is SM4 in GCM mode, keyed with the first 16 bytes of SM3(api v3 key).
	AlgorithmSM4GCM = "AEAD_SM4_GCM"

	// TagSize is the authentication tag length in bytes (128 bit).
	TagSize = 16

	// APIv3KeyLength is the length of the merchant api v3 key.
	APIv3KeyLength = 32

	sm4KeyLength = 16
)

var _ core.AeadCipher = (*Cipher)(nil)

type blockFactory func(key []byte) (gocipher.Block, error)

// Cipher is an AEAD cipher bound to one algorithm and one key.
// It only holds the block cipher; a GCM instance is created per call
// because the nonce size is taken from the caller's nonce.
type Cipher struct {
	algorithm string
	block     gocipher.Block
}

// New returns the cipher registered under algorithm, keyed with key.
// An unknown algorithm or a key of the wrong length is a configuration error.
func New(algorithm string, key []byte) (*Cipher, error) {
	var (
		factory blockFactory
		derived []byte
	)
	switch algorithm {
	case AlgorithmAES256GCM:
		if len(key) != APIv3KeyLength {
			return nil, core.Configurationf("%s requires a %d byte key, got %d bytes",
				algorithm, APIv3KeyLength, len(key))
		}
		factory = aes.NewCipher
		derived = key
	case AlgorithmSM4GCM:
		if len(key) == 0 {
			return nil, core.Configurationf("%s requires a non-empty key", algorithm)
		}
		factory = sm4.NewCipher
		derived = deriveSM4Key(key)
	default:
		return nil, core.Configurationf("unsupported cipher algorithm %q", algorithm)
	}

	block, err := factory(derived)
	if err != nil {
		return nil, &core.ConfigurationError{
			Reason: fmt.Sprintf("creating %s block cipher", algorithm),
			Err:    err,
		}
	}
	return &Cipher{
		algorithm: algorithm,
		block:     block,
	}, nil
}

// deriveSM4Key hashes the api v3 key with SM3 and keeps the first 16 bytes.
func deriveSM4Key(key []byte) []byte {
	digest := sm3.Sum(key)
	out := make([]byte, sm4KeyLength)
	copy(out, digest[:sm4KeyLength])
	return out
}

func (c *Cipher) Algorithm() string {
	return c.algorithm
}

func (c *Cipher) aead(nonce []byte) (gocipher.AEAD, error) {
	if len(nonce) == 0 {
		return nil, &core.MalformedMessageError{Reason: c.algorithm + " nonce is empty"}
	}
	aead, err := gocipher.NewGCMWithNonceSize(c.block, len(nonce))
	if err != nil {
		return nil, &core.MalformedMessageError{
			Reason: fmt.Sprintf("%s cannot use a %d byte nonce", c.algorithm, len(nonce)),
			Err:    err,
		}
	}
	return aead, nil
}

// Encrypt seals plaintext and returns ciphertext||tag.
func (c *Cipher) Encrypt(associatedData, nonce, plaintext []byte) ([]byte, error) {
	aead, err := c.aead(nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, associatedData), nil
}

// Decrypt opens ciphertext||tag. Any tag mismatch yields a *core.DecryptionError.
func (c *Cipher) Decrypt(associatedData, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := c.aead(nonce)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < TagSize {
		return nil, &core.DecryptionError{
			Algorithm: c.algorithm,
			Err:       fmt.Errorf("ciphertext shorter than the %d byte tag", TagSize),
		}
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		// never include key material or plaintext here
		return nil, &core.DecryptionError{Algorithm: c.algorithm, Err: err}
	}
	return plaintext, nil
}
