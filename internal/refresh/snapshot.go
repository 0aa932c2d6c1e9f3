package refresh

import (
	"sort"
	"time"

	"github.com/darmiel/paytrust/internal/core"
)

// Snapshot is the certificate set published for one key by a successful
// download. It is immutable once published.
type Snapshot struct {
	Key       core.RegistryKey
	FetchedAt time.Time

	certificates map[string]core.Certificate
	available    core.Certificate
}

func newSnapshot(key core.RegistryKey, certificates []core.Certificate, fetchedAt time.Time) *Snapshot {
	index := make(map[string]core.Certificate, len(certificates))
	for _, c := range certificates {
		index[core.NormalizeSerial(c.SerialNumber)] = c
	}
	available, _ := core.LatestCertificate(certificates)
	return &Snapshot{
		Key:          key,
		FetchedAt:    fetchedAt,
		certificates: index,
		available:    available,
	}
}

func (s *Snapshot) Certificate(serial string) (core.Certificate, bool) {
	c, ok := s.certificates[core.NormalizeSerial(serial)]
	return c, ok
}

func (s *Snapshot) AvailableCertificate() core.Certificate {
	return s.available
}

// Serials returns the held serials in ascending order.
func (s *Snapshot) Serials() []string {
	out := make([]string, 0, len(s.certificates))
	for serial := range s.certificates {
		out = append(out, serial)
	}
	sort.Strings(out)
	return out
}

// Certificates returns the held certificates ordered by serial.
func (s *Snapshot) Certificates() []core.Certificate {
	out := make([]core.Certificate, 0, len(s.certificates))
	for _, serial := range s.Serials() {
		out = append(out, s.certificates[serial])
	}
	return out
}
