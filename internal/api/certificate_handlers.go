package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/api/presenter"
	"github.com/darmiel/paytrust/internal/service"
)

// handleListCertificates responds with the certificates every merchant trusts.
func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.trust.Certificates(), http.StatusOK)
}

type AuthorizePayload struct {
	MerchantID string `json:"merchant_id"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Body       string `json:"body"`
}

// handleAuthorize signs an outbound request for a merchant.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload AuthorizePayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode authorize payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.MerchantID == "" || payload.URL == "" {
		presenter.Error(w, r, "merchant_id and url are required", http.StatusBadRequest)
		return
	}

	res, err := s.trust.Authorize(service.AuthorizeRequest{
		MerchantID: payload.MerchantID,
		Method:     payload.Method,
		URL:        payload.URL,
		Body:       payload.Body,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("authorization failed")
		presenter.Error(w, r, err.Error(), service.StatusFor(err))
		return
	}
	presenter.JSON(w, r, res, http.StatusOK)
}
