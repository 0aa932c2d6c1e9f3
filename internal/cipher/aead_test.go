package cipher

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestCipher_RoundTrip(t *testing.T) {
	plaintexts := []string{
		"",
		"hello",
		`{"out_trade_no":"1217752501201407033233368018","amount":{"total":100}}`,
		"微信支付 ✓ ünïcödé",
	}

	for _, alg := range []string{AlgorithmAES256GCM, AlgorithmSM4GCM} {
		t.Run(alg, func(t *testing.T) {
			c, err := New(alg, testKey)
			require.NoError(t, err)
			assert.Equal(t, alg, c.Algorithm())

			for _, pt := range plaintexts {
				aad := []byte("transaction")
				nonce := []byte("fdasflkja484")

				sealed, err := c.Encrypt(aad, nonce, []byte(pt))
				require.NoError(t, err)
				assert.Len(t, sealed, len(pt)+TagSize)

				opened, err := c.Decrypt(aad, nonce, sealed)
				require.NoError(t, err)
				assert.Equal(t, pt, string(opened))
			}
		})
	}
}

func TestCipher_Tamper(t *testing.T) {
	for _, alg := range []string{AlgorithmAES256GCM, AlgorithmSM4GCM} {
		t.Run(alg, func(t *testing.T) {
			c, err := New(alg, testKey)
			require.NoError(t, err)

			aad := []byte("certificate")
			nonce := []byte("4c6b6b8cb2a1")
			sealed, err := c.Encrypt(aad, nonce, []byte("secret payload"))
			require.NoError(t, err)

			for i := range sealed {
				flipped := bytes.Clone(sealed)
				flipped[i] ^= 0x01
				pt, err := c.Decrypt(aad, nonce, flipped)
				require.Error(t, err, "byte %d", i)
				assert.Nil(t, pt)
				assert.True(t, errors.Is(err, core.ErrDecryption))
			}

			for i := range aad {
				flipped := bytes.Clone(aad)
				flipped[i] ^= 0x01
				_, err := c.Decrypt(flipped, nonce, sealed)
				assert.ErrorIs(t, err, core.ErrDecryption)
			}

			_, err = c.Decrypt(aad, []byte("000000000000"), sealed)
			assert.ErrorIs(t, err, core.ErrDecryption)

			other, err := New(alg, []byte("fedcba9876543210fedcba9876543210"))
			require.NoError(t, err)
			_, err = other.Decrypt(aad, nonce, sealed)
			assert.ErrorIs(t, err, core.ErrDecryption)

			_, err = c.Decrypt(aad, nonce, sealed[:TagSize-1])
			var decErr *core.DecryptionError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, alg, decErr.Algorithm)
		})
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		key       []byte
	}{
		{name: "Unknown Algorithm", algorithm: "AEAD_CHACHA20", key: testKey},
		{name: "Short AES Key", algorithm: AlgorithmAES256GCM, key: []byte("short")},
		{name: "Empty SM4 Key", algorithm: AlgorithmSM4GCM, key: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.algorithm, tt.key)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.NotErrorIs(t, err, core.ErrDecryption)
			assert.NotContains(t, err.Error(), string(testKey))
		})
	}
}

func TestCipher_EmptyNonce(t *testing.T) {
	c, err := New(AlgorithmAES256GCM, testKey)
	require.NoError(t, err)

	_, err = c.Encrypt(nil, nil, []byte("x"))
	assert.ErrorIs(t, err, core.ErrMalformedMessage)
}

func TestDeriveSM4Key(t *testing.T) {
	k := deriveSM4Key(testKey)
	assert.Len(t, k, sm4KeyLength)
	assert.Equal(t, k, deriveSM4Key(testKey))
	assert.NotEqual(t, k, deriveSM4Key([]byte("another key")))
}

func TestStringHelpers(t *testing.T) {
	reg, err := BuildRegistry([]config.CipherConfig{
		{Algorithm: AlgorithmAES256GCM, Key: string(testKey)},
		{Algorithm: AlgorithmSM4GCM, Key: string(testKey)},
	})
	require.NoError(t, err)
	require.Len(t, reg, 2)

	c, ok := reg.Get(AlgorithmSM4GCM)
	require.True(t, ok)

	ct, err := EncryptToString(c, "aad", "nonce1234567", `{"a":1}`)
	require.NoError(t, err)

	pt, err := DecryptToString(c, "aad", "nonce1234567", ct)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, pt)

	_, err = DecryptToString(c, "aad", "nonce1234567", "%%%not-base64")
	assert.ErrorIs(t, err, core.ErrMalformedMessage)

	_, ok = reg.Get("AEAD_UNKNOWN")
	assert.False(t, ok)

	_, err = BuildRegistry([]config.CipherConfig{{Algorithm: "nope", Key: "k"}})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestMerchantCiphers(t *testing.T) {
	registry, err := BuildRegistry(MerchantCiphers(string(testKey)))
	require.NoError(t, err)
	require.Len(t, registry, 2)

	for _, algorithm := range []string{AlgorithmAES256GCM, AlgorithmSM4GCM} {
		c, ok := registry.Get(algorithm)
		require.True(t, ok, algorithm)
		assert.Equal(t, algorithm, c.Algorithm())

		ct, err := EncryptToString(c, "transaction", "fdasflkja484", "hello")
		require.NoError(t, err)
		pt, err := DecryptToString(c, "transaction", "fdasflkja484", ct)
		require.NoError(t, err)
		assert.Equal(t, "hello", pt)
	}
}
