package presenter

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/service"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// correlationHeader mirrors middleware.CorrelationIDHeader, which is set on
// the response before any handler runs.
const correlationHeader = "X-Correlation-ID"

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	JSON(w, r, ErrorResponse{
		Error:         msg,
		CorrelationID: w.Header().Get(correlationHeader),
	}, status)
}

// Err writes err with the status and kind derived from the trust core error.
// Only short is shown to the caller; details stay in the logs and the audit.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	JSON(w, r, ErrorResponse{
		Error:         short,
		Kind:          service.Kind(err),
		CorrelationID: w.Header().Get(correlationHeader),
	}, service.StatusFor(err))
}
