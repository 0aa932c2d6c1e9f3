package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/audit"
	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/notification"
	"github.com/darmiel/paytrust/internal/refresh"
)

// TrustService answers inbound notifications and signs outbound requests on
// behalf of the configured merchants.
type TrustService struct {
	merchants map[string]*Merchant
	refresh   *refresh.Service
	auditor   core.Auditor
	maxStale  time.Duration
	now       func() time.Time
}

func NewTrustService(
	merchants []*Merchant,
	refreshService *refresh.Service,
	auditor core.Auditor,
	maxStale time.Duration,
) *TrustService {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	byID := make(map[string]*Merchant, len(merchants))
	for _, m := range merchants {
		byID[m.ID] = m
	}
	return &TrustService{
		merchants: byID,
		refresh:   refreshService,
		auditor:   auditor,
		maxStale:  maxStale,
		now:       time.Now,
	}
}

func (s *TrustService) Auditor() core.Auditor {
	return s.auditor
}

func (s *TrustService) Refresh() *refresh.Service {
	return s.refresh
}

func (s *TrustService) Merchant(id string) (*Merchant, error) {
	m, ok := s.merchants[id]
	if !ok {
		return nil, httpError(http.StatusNotFound, fmt.Errorf("merchant '%s' not found", id))
	}
	return m, nil
}

// Merchants returns all merchants ordered by id.
func (s *TrustService) Merchants() []*Merchant {
	out := make([]*Merchant, 0, len(s.merchants))
	for _, m := range s.merchants {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// ParseNotification authenticates and decrypts one inbound notification.
// Every attempt is audited with a fingerprint of the body, never the body.
func (s *TrustService) ParseNotification(ctx context.Context, req NotificationRequest) (*notification.Notification, error) {
	logger := log.Ctx(ctx)

	entry := core.AuditEntry{
		ID:              req.CorrelationID,
		Time:            s.now(),
		Action:          "notification.parse",
		SignType:        req.Param.SignType,
		SerialNumber:    req.Param.SerialNumber,
		BodyFingerprint: audit.Fingerprint(req.Param.Body),
	}
	defer func() {
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for notification")
		}
	}()

	m, err := s.Merchant(req.MerchantID)
	if err != nil {
		entry.Kind = KindConfiguration
		entry.Error = err.Error()
		return nil, err
	}

	n, err := m.Parser.Parse(req.Param, nil)
	if err != nil {
		entry.Kind = Kind(err)
		entry.Error = core.SafeMessage(err)
		logger.Warn().
			Str("error", entry.Error).
			Str("merchant", m.ID).
			Str("kind", entry.Kind).
			Str("serial", req.Param.SerialNumber).
			Msg("rejected notification")
		return nil, httpError(StatusFor(err), err)
	}

	entry.Success = true
	entry.EventType = n.EventType
	if n.Resource != nil {
		entry.Algorithm = n.Resource.AlgorithmName()
	}
	logger.Info().
		Str("merchant", m.ID).
		Str("id", n.ID).
		Str("event_type", n.EventType).
		Msg("accepted notification")
	return n, nil
}

// Authorize builds the Authorization header for an outbound request.
func (s *TrustService) Authorize(req AuthorizeRequest) (*AuthorizeResponse, error) {
	m, err := s.Merchant(req.MerchantID)
	if err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("invalid url: %w", err))
	}
	authorization, err := m.Credential.Authorization(u, req.Method, req.Body)
	if err != nil {
		return nil, httpError(http.StatusInternalServerError, err)
	}
	return &AuthorizeResponse{
		Authorization: authorization,
		Serial:        m.Validator.SerialNumber(),
	}, nil
}

// Certificates lists the certificates of every merchant.
func (s *TrustService) Certificates() []CertificateSet {
	statuses := make(map[core.RegistryKey]refresh.KeyStatus)
	if s.refresh != nil {
		for _, st := range s.refresh.Status() {
			statuses[st.Key] = st
		}
	}

	out := make([]CertificateSet, 0, len(s.merchants))
	for _, m := range s.Merchants() {
		set := CertificateSet{
			MerchantID:   m.ID,
			Algorithm:    m.Algorithm,
			Source:       m.Source,
			PublicKeyID:  m.PublicKeyID(),
			Certificates: []CertificateView{},
		}
		available, _ := m.AvailableCertificate()
		list := m.Certificates()
		sort.Slice(list, func(i, j int) bool {
			return list[i].SerialNumber < list[j].SerialNumber
		})
		for _, c := range list {
			set.Certificates = append(set.Certificates, CertificateView{
				SerialNumber: c.SerialNumber,
				NotAfter:     c.NotAfter,
				Available:    c.SerialNumber == available.SerialNumber,
			})
		}
		if st, ok := statuses[m.Key]; ok {
			set.Refresh = &st
		}
		out = append(out, set)
	}
	return out
}

// Health fails if an automatically refreshed certificate set is older than
// the configured maximum staleness.
func (s *TrustService) Health() error {
	if s.refresh == nil {
		return nil
	}
	return s.refresh.Health(s.maxStale)
}

// Close stops the refresh scheduler and flushes the auditor.
func (s *TrustService) Close() error {
	if s.refresh != nil {
		s.refresh.Shutdown()
	}
	return s.auditor.Close()
}

// IsNotFound reports whether err is an unknown merchant error.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
