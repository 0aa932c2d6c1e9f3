package certs

import (
	"context"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/certs/certstest"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/refresh"
)

func TestNewStatic(t *testing.T) {
	now := time.Now()

	t.Run("empty list", func(t *testing.T) {
		_, err := NewStatic(nil)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("lookup and latest", func(t *testing.T) {
		s, err := NewStatic([]core.Certificate{
			{SerialNumber: "0A", NotAfter: now.Add(time.Hour)},
			{SerialNumber: "0B", NotAfter: now.Add(3 * time.Hour)},
			{SerialNumber: "0C", NotAfter: now.Add(2 * time.Hour)},
		})
		require.NoError(t, err)

		avail, ok := s.AvailableCertificate()
		require.True(t, ok)
		assert.Equal(t, "0B", avail.SerialNumber)

		c, ok := s.Certificate("c")
		require.True(t, ok)
		assert.Equal(t, "0C", c.SerialNumber)

		_, ok = s.Certificate("0D")
		assert.False(t, ok)
		assert.Len(t, s.All(), 3)
	})
}

func TestAuto(t *testing.T) {
	svc := refresh.New()
	t.Cleanup(svc.Shutdown)

	key := core.RegistryKey{OwnerID: "1900000001", Algorithm: "RSA"}
	a := NewAuto(svc, key)

	_, ok := a.AvailableCertificate()
	assert.False(t, ok)
	assert.Nil(t, a.All())

	now := time.Now()
	set := []core.Certificate{
		{SerialNumber: "AA", NotAfter: now.Add(time.Hour)},
		{SerialNumber: "BB", NotAfter: now.Add(2 * time.Hour)},
	}
	require.NoError(t, svc.Register(context.Background(), key, func(context.Context) ([]core.Certificate, error) {
		return set, nil
	}))

	avail, ok := a.AvailableCertificate()
	require.True(t, ok)
	assert.Equal(t, "BB", avail.SerialNumber)

	_, ok = a.Certificate("aa")
	assert.True(t, ok)
	assert.Equal(t, key, a.Key())
	assert.Len(t, a.All(), 2)

	// other keys are not visible
	other := NewAuto(svc, core.RegistryKey{OwnerID: "1900000001", Algorithm: "SM2"})
	_, ok = other.Certificate("AA")
	assert.False(t, ok)
}

func TestParsePEM(t *testing.T) {
	notAfter := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	gen := certstest.NewRSA(t, "5157f09efdc096de15ebe81a47057a72", notAfter)

	c, err := ParsePEM(gen.PEM)
	require.NoError(t, err)
	assert.Equal(t, "5157F09EFDC096DE15EBE81A47057A72", c.SerialNumber)
	assert.True(t, c.NotAfter.Equal(notAfter))
	assert.Equal(t, gen.Certificate.Raw, c.Raw)

	pub, ok := c.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.True(t, pub.Equal(&gen.Key.PublicKey))

	t.Run("no certificate block", func(t *testing.T) {
		_, err := ParsePEM([]byte("-----BEGIN FOO-----\nAAAA\n-----END FOO-----\n"))
		assert.Error(t, err)
	})

	t.Run("garbage der", func(t *testing.T) {
		_, err := Parse([]byte{0x01, 0x02})
		assert.Error(t, err)
	})
}
