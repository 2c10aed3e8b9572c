package models

import "time"

// System health status values
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
	HealthStatusCritical  = "critical"
)

// Health check status values
const (
	CheckStatusPass    = "pass"
	CheckStatusFail    = "fail"
	CheckStatusWarning = "warning"
	CheckStatusTimeout = "timeout"
)

// Health check types
const (
	CheckTypeAPI             = "api"
	CheckTypeDatabase        = "database"
	CheckTypeIntegration     = "integration"
	CheckTypeBackgroundJob   = "background_job"
	CheckTypeExternalService = "external_service"
)

// Incident status values. An incident is active while open or investigating.
const (
	IncidentStatusOpen          = "open"
	IncidentStatusInvestigating = "investigating"
	IncidentStatusResolved      = "resolved"
	IncidentStatusClosed        = "closed"
)

// Severity values shared by incidents and alerts
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// TenantSystem is the sentinel tenant id for platform-wide probe rows.
const TenantSystem = "system"

// SystemHealth is the latest known health snapshot for a tenant. Writes are
// upserts keyed by tenant id; a new write replaces the prior visible state.
type SystemHealth struct {
	ID                   string                 `json:"id"`
	TenantID             string                 `json:"tenant_id"`
	Status               string                 `json:"status"`
	OverallScore         float64                `json:"overall_score"`
	CPUUsage             float64                `json:"cpu_usage"`
	MemoryUsage          float64                `json:"memory_usage"`
	DiskUsage            float64                `json:"disk_usage"`
	ResponseTimeMs       float64                `json:"response_time_ms"`
	DatabaseStatus       string                 `json:"database_status"`
	APIStatus            string                 `json:"api_status"`
	IntegrationsStatus   string                 `json:"integrations_status"`
	BackgroundJobsStatus string                 `json:"background_jobs_status"`
	Metadata             map[string]interface{} `json:"metadata"`
	Notes                *string                `json:"notes"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// HealthCheck is one probe execution result. Rows are append-only.
type HealthCheck struct {
	ID               string                 `json:"id"`
	TenantID         string                 `json:"tenant_id"`
	CheckName        string                 `json:"check_name"`
	ServiceName      string                 `json:"service_name"`
	CheckType        string                 `json:"check_type"`
	Status           string                 `json:"status"`
	ResponseTimeMs   int64                  `json:"response_time_ms"`
	StatusCode       *int                   `json:"status_code"`
	ErrorMessage     *string                `json:"error_message"`
	ErrorCode        *string                `json:"error_code"`
	StackTrace       *string                `json:"stack_trace"`
	EndpointURL      *string                `json:"endpoint_url"`
	ExpectedResponse *string                `json:"expected_response"`
	TimeoutMs        int64                  `json:"timeout_ms"`
	Metadata         map[string]interface{} `json:"metadata"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Incident is a tracked service-disruption event.
type Incident struct {
	ID               string                 `json:"id"`
	TenantID         string                 `json:"tenant_id"`
	Title            string                 `json:"title"`
	Description      *string                `json:"description"`
	Severity         string                 `json:"severity"`
	Status           string                 `json:"status"`
	AffectedServices []string               `json:"affected_services"`
	AffectedUsers    int                    `json:"affected_users"`
	BusinessImpact   *string                `json:"business_impact"`
	StartedAt        time.Time              `json:"started_at"`
	ResolvedAt       *time.Time             `json:"resolved_at"`
	AcknowledgedAt   *time.Time             `json:"acknowledged_at"`
	AcknowledgedBy   *string                `json:"acknowledged_by"`
	RootCause        *string                `json:"root_cause"`
	ResolutionNotes  *string                `json:"resolution_notes"`
	ResolutionSteps  []string               `json:"resolution_steps"`
	Tags             []string               `json:"tags"`
	Metadata         map[string]interface{} `json:"metadata"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Active reports whether the incident still needs attention.
func (i *Incident) Active() bool {
	return i.Status == IncidentStatusOpen || i.Status == IncidentStatusInvestigating
}

// Alert combines a rule definition with its live trigger state. Nothing in
// this service evaluates metric streams against the rule; IsTriggered is
// flipped by an external evaluator and only read/written here.
type Alert struct {
	ID                      string                 `json:"id"`
	TenantID                string                 `json:"tenant_id"`
	Name                    string                 `json:"name"`
	Description             *string                `json:"description"`
	AlertType               string                 `json:"alert_type"`
	MetricName              string                 `json:"metric_name"`
	Operator                string                 `json:"operator"`
	ThresholdValue          float64                `json:"threshold_value"`
	EvaluationWindowMinutes int                    `json:"evaluation_window_minutes"`
	Severity                string                 `json:"severity"`
	IsEnabled               bool                   `json:"is_enabled"`
	CooldownMinutes         int                    `json:"cooldown_minutes"`
	NotificationChannels    []string               `json:"notification_channels"`
	NotificationTemplate    *string                `json:"notification_template"`
	LastTriggeredAt         *time.Time             `json:"last_triggered_at"`
	TriggerCount            int                    `json:"trigger_count"`
	IsTriggered             bool                   `json:"is_triggered"`
	Metadata                map[string]interface{} `json:"metadata"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

// PerformanceMetric is one sampled measurement. Rows are append-only.
type PerformanceMetric struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	MetricName  string                 `json:"metric_name"`
	MetricType  string                 `json:"metric_type"`
	Value       float64                `json:"value"`
	Unit        *string                `json:"unit"`
	ServiceName *string                `json:"service_name"`
	Endpoint    *string                `json:"endpoint"`
	UserID      *string                `json:"user_id"`
	SessionID   *string                `json:"session_id"`
	Dimensions  map[string]interface{} `json:"dimensions"`
	Timestamp   time.Time              `json:"timestamp"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Metric types
const (
	MetricTypeCounter   = "counter"
	MetricTypeGauge     = "gauge"
	MetricTypeHistogram = "histogram"
	MetricTypeTimer     = "timer"
)

// ServiceStatus is one row of the per-service table in a health-check
// summary: the latest observed status for a service name.
type ServiceStatus struct {
	ServiceName    string    `json:"service_name"`
	Status         string    `json:"status"`
	LastCheck      time.Time `json:"last_check"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

// HealthCheckSummary is the folded view of a set of health-check rows.
type HealthCheckSummary struct {
	TotalChecks         int             `json:"total_checks"`
	PassingChecks       int             `json:"passing_checks"`
	FailingChecks       int             `json:"failing_checks"`
	WarningChecks       int             `json:"warning_checks"`
	TimeoutChecks       int             `json:"timeout_checks"`
	AverageResponseTime float64         `json:"average_response_time"`
	Services            []ServiceStatus `json:"services"`
}

// IncidentSummary is the folded view of a set of incident rows.
type IncidentSummary struct {
	TotalIncidents        int        `json:"total_incidents"`
	OpenIncidents         int        `json:"open_incidents"`
	CriticalIncidents     int        `json:"critical_incidents"`
	AverageResolutionTime float64    `json:"average_resolution_time"`
	RecentIncidents       []Incident `json:"recent_incidents"`
}

// AlertSummary is the folded view of a set of alert rows.
type AlertSummary struct {
	TotalAlerts     int     `json:"total_alerts"`
	EnabledAlerts   int     `json:"enabled_alerts"`
	TriggeredAlerts int     `json:"triggered_alerts"`
	CriticalAlerts  int     `json:"critical_alerts"`
	RecentTriggers  []Alert `json:"recent_triggers"`
}

// ScorePoint is one point of the synthesized health-score trend.
type ScorePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// ResponseTimePoint is one point of the synthesized response-time trend.
type ResponseTimePoint struct {
	Timestamp      time.Time `json:"timestamp"`
	ResponseTimeMs float64   `json:"response_time_ms"`
}

// Dashboard is the aggregate monitoring view for one tenant.
type Dashboard struct {
	SystemHealth       SystemHealth        `json:"system_health"`
	RecentHealthChecks []HealthCheck       `json:"recent_health_checks"`
	ActiveIncidents    []Incident          `json:"active_incidents"`
	TriggeredAlerts    []Alert             `json:"triggered_alerts"`
	PerformanceMetrics []PerformanceMetric `json:"performance_metrics"`
	HealthScoreTrend   []ScorePoint        `json:"health_score_trend"`
	ResponseTimeTrend  []ResponseTimePoint `json:"response_time_trend"`
}
