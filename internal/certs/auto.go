package certs

import (
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/refresh"
)

var _ core.CertificateProvider = (*Auto)(nil)

// Auto is a read-only view on the certificates a refresh.Service keeps for
// one registry key. Lookups always see the latest published set.
type Auto struct {
	service *refresh.Service
	key     core.RegistryKey
}

func NewAuto(service *refresh.Service, key core.RegistryKey) *Auto {
	return &Auto{
		service: service,
		key:     key,
	}
}

func (a *Auto) Key() core.RegistryKey {
	return a.key
}

func (a *Auto) Certificate(serial string) (core.Certificate, bool) {
	return a.service.Certificate(a.key, serial)
}

func (a *Auto) AvailableCertificate() (core.Certificate, bool) {
	return a.service.AvailableCertificate(a.key)
}

// All returns the certificates of the latest snapshot ordered by serial.
func (a *Auto) All() []core.Certificate {
	snap := a.service.Snapshot(a.key)
	if snap == nil {
		return nil
	}
	return snap.Certificates()
}
