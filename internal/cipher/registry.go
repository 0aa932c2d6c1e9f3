package cipher

import (
	"encoding/base64"
	"fmt"

	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
)

// Registry maps an algorithm token to the cipher serving it.
type Registry map[string]core.AeadCipher

// MerchantCiphers configures every AEAD cipher a merchant supports, keyed
// with its api v3 key.
func MerchantCiphers(apiV3Key string) []config.CipherConfig {
	return []config.CipherConfig{
		{Algorithm: AlgorithmAES256GCM, Key: apiV3Key},
		{Algorithm: AlgorithmSM4GCM, Key: apiV3Key},
	}
}

func BuildRegistry(cfgs []config.CipherConfig) (Registry, error) {
	registry := make(Registry)
	for _, cfg := range cfgs {
		c, err := New(cfg.Algorithm, []byte(cfg.Key))
		if err != nil {
			return nil, fmt.Errorf("building cipher %q: %w", cfg.Algorithm, err)
		}
		registry[cfg.Algorithm] = c
	}
	return registry, nil
}

// Get returns the cipher for algorithm.
func (r Registry) Get(algorithm string) (core.AeadCipher, bool) {
	c, ok := r[algorithm]
	return c, ok
}

// DecryptToString decrypts a base64 ciphertext whose associated data and nonce
// are transported as UTF-8 text, the way the platform encodes them.
func DecryptToString(c core.AeadCipher, associatedData, nonce, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &core.MalformedMessageError{Reason: "ciphertext is not valid base64", Err: err}
	}
	plaintext, err := c.Decrypt([]byte(associatedData), []byte(nonce), raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptToString is the inverse of DecryptToString.
func EncryptToString(c core.AeadCipher, associatedData, nonce, plaintext string) (string, error) {
	sealed, err := c.Encrypt([]byte(associatedData), []byte(nonce), []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
