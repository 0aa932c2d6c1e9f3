package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/api/presenter"
	"github.com/darmiel/paytrust/internal/core"
)

// handleListAudits processes requests to retrieve audit log entries.
func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	if s.auditReader == nil {
		presenter.Error(w, r, "audit log is not queryable", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterSerial := q.Get("serial")
	filterFingerprint := q.Get("fingerprint")
	filterKind := q.Get("kind")

	limit := 50
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 0 {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterSerial != "" || filterFingerprint != "" || filterKind != "" {
		logger.Debug().Msg("applying audit log filters")
		entries, err = s.auditReader.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterSerial != "" && entry.SerialNumber != filterSerial {
				return false
			}
			if filterFingerprint != "" && entry.BodyFingerprint != filterFingerprint {
				return false
			}
			if filterKind != "" && entry.Kind != filterKind {
				return false
			}
			return true
		}, limit)
	} else {
		entries, err = s.auditReader.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}
