package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darmiel/paytrust/internal/api/middleware"
	"github.com/darmiel/paytrust/internal/audit"
	"github.com/darmiel/paytrust/internal/service"
	"github.com/darmiel/paytrust/internal/tasks"
)

type Server struct {
	trust        *service.TrustService
	taskManager  *tasks.Manager
	auditReader  audit.Reader
	gatherer     prometheus.Gatherer
	maxBodyBytes int64
}

type Options struct {
	// Gatherer is served on /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// MaxBodyBytes limits notification bodies.
	MaxBodyBytes int64
}

func NewServer(trust *service.TrustService, taskManager *tasks.Manager, opts Options) *Server {
	reader, _ := trust.Auditor().(audit.Reader)
	return &Server{
		trust:        trust,
		taskManager:  taskManager,
		auditReader:  reader,
		gatherer:     opts.Gatherer,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

func (s *Server) Routes(adminSigningKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	if s.gatherer != nil {
		mux.Handle("GET "+MetricsRoute, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// platform callbacks, authenticated by their signature
	mux.Handle("POST "+NotificationRoute,
		middleware.MaxBytes(s.maxBodyBytes)(http.HandlerFunc(s.handleNotification)))

	// admin routes
	admin := middleware.AdminAuth(adminSigningKey)
	mux.Handle("GET "+CertificatesRoute, admin(http.HandlerFunc(s.handleListCertificates)))
	mux.Handle("POST "+AuthorizeRoute, admin(http.HandlerFunc(s.handleAuthorize)))
	mux.Handle("GET "+ListAuditsRoute, admin(http.HandlerFunc(s.handleListAudits)))
	mux.Handle("GET "+ListTasksRoute, admin(http.HandlerFunc(s.handleListTasks)))
	mux.Handle("POST "+TriggerTaskRoute, admin(http.HandlerFunc(s.handleTriggerTask)))
	mux.Handle("GET "+LogsForTaskRoute, admin(http.HandlerFunc(s.handleLogsForTask)))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
