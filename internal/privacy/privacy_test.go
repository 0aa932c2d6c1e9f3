package privacy

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/certs"
	"github.com/darmiel/paytrust/internal/certs/certstest"
	"github.com/darmiel/paytrust/internal/core"
)

func TestRoundTrip(t *testing.T) {
	r := certstest.NewRSA(t, "0A", time.Now().Add(time.Hour))
	s := certstest.NewSM2(t, "0B", time.Now().Add(time.Hour))

	tests := []struct {
		name      string
		algorithm string
		pub       any
		priv      any
	}{
		{"rsa", AlgorithmRSAOAEP, &r.Key.PublicKey, r.Key},
		{"sm2", AlgorithmSM2, &s.Key.PublicKey, s.Key},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(tt.pub, "0A")
			require.NoError(t, err)
			assert.Equal(t, tt.algorithm, enc.Algorithm())
			assert.Equal(t, "0A", enc.SerialNumber())

			dec, err := NewDecryptor(tt.priv)
			require.NoError(t, err)
			assert.Equal(t, tt.algorithm, dec.Algorithm())

			for _, plain := range []string{"张三", "13800138000"} {
				ct, err := enc.Encrypt(plain)
				require.NoError(t, err)
				assert.NotEqual(t, plain, ct)

				got, err := dec.Decrypt(ct)
				require.NoError(t, err)
				assert.Equal(t, plain, got)
			}
		})
	}
}

func TestDecryptErrors(t *testing.T) {
	r := certstest.NewRSA(t, "0A", time.Now().Add(time.Hour))
	other := certstest.NewRSA(t, "0B", time.Now().Add(time.Hour))

	enc, err := NewEncryptor(&r.Key.PublicKey, "0A")
	require.NoError(t, err)
	ct, err := enc.Encrypt("secret")
	require.NoError(t, err)

	dec, err := NewDecryptor(other.Key)
	require.NoError(t, err)
	_, err = dec.Decrypt(ct)
	assert.ErrorIs(t, err, core.ErrDecryption)

	_, err = dec.Decrypt("%%%")
	assert.ErrorIs(t, err, core.ErrMalformedMessage)
}

func TestFromProvider(t *testing.T) {
	older := certstest.NewRSA(t, "01", time.Now().Add(time.Hour))
	newer := certstest.NewRSA(t, "02", time.Now().Add(48*time.Hour))
	provider, err := certs.NewStatic([]core.Certificate{older.Certificate, newer.Certificate})
	require.NoError(t, err)

	enc, err := NewEncryptorFromProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, newer.Certificate.SerialNumber, enc.SerialNumber())

	ct, err := enc.Encrypt("secret")
	require.NoError(t, err)
	dec, err := NewDecryptor(newer.Key)
	require.NoError(t, err)
	got, err := dec.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestConfigurationErrors(t *testing.T) {
	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = NewEncryptor(&p256.PublicKey, "01")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	r := certstest.NewRSA(t, "0A", time.Now().Add(time.Hour))
	_, err = NewEncryptor(&r.Key.PublicKey, "")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewDecryptor(p256)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
