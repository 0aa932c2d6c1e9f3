package certs

import (
	"encoding/pem"
	"fmt"

	"github.com/emmansun/gmsm/smx509"

	"github.com/darmiel/paytrust/internal/core"
)

// Parse builds a Certificate from DER bytes. RSA and SM2 certificates are
// both accepted. The chain is not validated.
func Parse(der []byte) (core.Certificate, error) {
	c, err := smx509.ParseCertificate(der)
	if err != nil {
		return core.Certificate{}, fmt.Errorf("parsing certificate: %w", err)
	}
	return core.Certificate{
		SerialNumber: core.NormalizeSerial(c.SerialNumber.Text(16)),
		PublicKey:    c.PublicKey,
		NotAfter:     c.NotAfter,
		Raw:          c.Raw,
	}, nil
}

// ParsePEM parses the first CERTIFICATE block of data.
func ParsePEM(data []byte) (core.Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return core.Certificate{}, fmt.Errorf("no CERTIFICATE block found")
		}
		if block.Type == "CERTIFICATE" {
			return Parse(block.Bytes)
		}
	}
}
