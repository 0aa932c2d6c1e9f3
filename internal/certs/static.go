package certs

import (
	"github.com/darmiel/paytrust/internal/core"
)

var _ core.CertificateProvider = (*Static)(nil)

// Static is a certificate registry built once from a fixed list.
type Static struct {
	certificates map[string]core.Certificate
	available    core.Certificate
}

// NewStatic indexes certificates by serial. An empty list is rejected since a
// registry that can never resolve a serial would fail every verification.
func NewStatic(certificates []core.Certificate) (*Static, error) {
	if len(certificates) == 0 {
		return nil, core.Configurationf("certificate list is empty")
	}
	index := make(map[string]core.Certificate, len(certificates))
	for _, c := range certificates {
		index[core.NormalizeSerial(c.SerialNumber)] = c
	}
	available, _ := core.LatestCertificate(certificates)
	return &Static{
		certificates: index,
		available:    available,
	}, nil
}

func (s *Static) Certificate(serial string) (core.Certificate, bool) {
	c, ok := s.certificates[core.NormalizeSerial(serial)]
	return c, ok
}

func (s *Static) AvailableCertificate() (core.Certificate, bool) {
	return s.available, true
}

// All returns the held certificates in no particular order.
func (s *Static) All() []core.Certificate {
	out := make([]core.Certificate, 0, len(s.certificates))
	for _, c := range s.certificates {
		out = append(out, c)
	}
	return out
}
