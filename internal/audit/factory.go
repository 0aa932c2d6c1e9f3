package audit

import (
	"fmt"

	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/core"
)

// Reader is implemented by auditors that can be queried.
type Reader interface {
	GetRecent(limit int) ([]core.AuditEntry, error)
	Find(filter func(entry core.AuditEntry) bool, limit int) ([]core.AuditEntry, error)
}

// New builds the auditor described by cfg.
func New(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "", "memory":
		return NewInMemoryAuditor(DefaultMemoryCapacity), nil
	case "file":
		return NewFileAuditor(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}

var _ core.Auditor = NoopAuditor{}

// NoopAuditor discards entries. It is used when auditing is disabled.
type NoopAuditor struct{}

func NewNoopAuditor() NoopAuditor { return NoopAuditor{} }

func (NoopAuditor) Log(core.AuditEntry) error { return nil }
func (NoopAuditor) Close() error              { return nil }
