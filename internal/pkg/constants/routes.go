package constants

// Route constants
const (
	APIRoute      = "/api"
	V1SubRoute    = "/v1"
	AdminSubRoute = "/admin"
	HealthRoute   = "/health"
	MetricsRoute  = "/metrics"
)
