package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/api/presenter"
	"github.com/darmiel/paytrust/internal/buildinfo"
)

// handleHealth responds with OK unless automatically refreshed certificates are stale.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.trust.Health(); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
		presenter.Error(w, r, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}
