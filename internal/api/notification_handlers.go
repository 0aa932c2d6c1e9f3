package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/api/middleware"
	"github.com/darmiel/paytrust/internal/api/presenter"
	"github.com/darmiel/paytrust/internal/notification"
	"github.com/darmiel/paytrust/internal/service"
)

type NotificationResponse struct {
	ID           string          `json:"id"`
	CreateTime   string          `json:"create_time,omitempty"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Resource     json.RawMessage `json:"resource"`
}

// handleNotification authenticates and decrypts a platform notification and
// responds with the decrypted resource.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	merchantID := r.PathValue("merchant")
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("merchant", merchantID)
	})

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			presenter.Error(w, r, "notification body too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.Warn().Err(err).Msg("failed to read notification body")
		presenter.Error(w, r, "failed to read body", http.StatusBadRequest)
		return
	}

	n, err := s.trust.ParseNotification(ctx, service.NotificationRequest{
		CorrelationID: middleware.CorrelationCtx(ctx),
		MerchantID:    merchantID,
		Param:         notification.RequestParamFromHTTP(r.Header, string(body)),
	})
	if err != nil {
		if service.IsNotFound(err) {
			presenter.Error(w, r, err.Error(), http.StatusNotFound)
			return
		}
		presenter.Err(w, r, err, "notification rejected")
		return
	}

	presenter.JSON(w, r, NotificationResponse{
		ID:           n.ID,
		CreateTime:   n.CreateTime,
		EventType:    n.EventType,
		ResourceType: n.ResourceType,
		Summary:      n.Summary,
		Resource:     n.Plaintext,
	}, http.StatusOK)
}
