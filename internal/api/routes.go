package api

const (
	HealthCheckRoute = "/healthz"
	MetricsRoute     = "/metrics"
	AboutRoute       = "/v1/info"

	NotificationRoute = "/v1/notifications/{merchant}"

	CertificatesRoute = "/v1/certificates"
	AuthorizeRoute    = "/v1/authorize"

	AuditParent     = "/v1/audit/"
	ListAuditsRoute = AuditParent + "entries"

	TaskParent       = "/v1/tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)
