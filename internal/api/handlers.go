package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"studio-monitoring/internal/monitoring"
	"studio-monitoring/internal/store"
	"studio-monitoring/pkg/config"
	"studio-monitoring/pkg/logger"
	"studio-monitoring/pkg/models"
	"studio-monitoring/pkg/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Server struct {
	config       *config.Config
	orchestrator *monitoring.Orchestrator
	router       *gin.Engine
}

func NewServer(cfg *config.Config, orch *monitoring.Orchestrator) *Server {
	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:       cfg,
		orchestrator: orch,
		router:       gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	// Recovery middleware recovers from any panics
	s.router.Use(gin.Recovery())

	// Custom logging middleware
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(s.corsMiddleware())

	// Request timeout middleware
	s.router.Use(s.timeoutMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// API group
	api := s.router.Group("/api")
	{
		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/:tenantId", s.validateTenantID(), s.handleGetDashboard)
		}

		systemHealth := api.Group("/system-health")
		{
			systemHealth.GET("/:tenantId", s.validateTenantID(), s.handleGetSystemHealth)
			systemHealth.PUT("/:tenantId", s.validateTenantID(), s.handleUpsertSystemHealth)
		}

		healthChecks := api.Group("/health-checks")
		{
			healthChecks.GET("/:tenantId", s.validateTenantID(), s.handleGetHealthChecks)
			healthChecks.GET("/:tenantId/current", s.validateTenantID(), s.handleGetCurrentServiceStatus)
			healthChecks.POST("/:tenantId", s.validateTenantID(), s.handleRecordHealthCheck)
		}

		incidents := api.Group("/incidents")
		{
			incidents.GET("/:tenantId", s.validateTenantID(), s.handleGetIncidents)
			incidents.GET("/:tenantId/:incidentId", s.validateTenantID(), s.validateIncidentID(), s.handleGetIncident)
			incidents.POST("/:tenantId", s.validateTenantID(), s.handleCreateIncident)
			incidents.PATCH("/:tenantId/:incidentId", s.validateTenantID(), s.validateIncidentID(), s.handleUpdateIncident)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("/:tenantId", s.validateTenantID(), s.handleGetAlerts)
			alerts.POST("/:tenantId", s.validateTenantID(), s.handleCreateAlert)
			alerts.PATCH("/:tenantId/:alertId", s.validateTenantID(), s.validateAlertID(), s.handleUpdateAlert)
		}

		metrics := api.Group("/metrics")
		{
			metrics.GET("/:tenantId", s.validateTenantID(), s.handleGetMetrics)
			metrics.GET("/:tenantId/current", s.validateTenantID(), s.handleGetCurrentMetrics)
		}
	}

	ws := s.router.Group("/ws")
	{
		ws.GET("/dashboard/:tenantId", s.validateTenantID(), s.handleWebSocketDashboard)
	}
}

func (s *Server) validateTenantID() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("tenantId")
		if !isValidID(tenantID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant ID format"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) validateIncidentID() gin.HandlerFunc {
	return func(c *gin.Context) {
		incidentID := c.Param("incidentId")
		if !isValidID(incidentID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID format"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) validateAlertID() gin.HandlerFunc {
	return func(c *gin.Context) {
		alertID := c.Param("alertId")
		if !isValidID(alertID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID format"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func isValidID(id string) bool {
	matched, _ := regexp.MatchString("^[a-zA-Z0-9_-]{1,50}$", id)
	return matched
}

func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":  "healthy",
		"time":    time.Now().Format(time.RFC3339),
		"version": "1.0.0",
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.orchestrator.GetStore().Ping(ctx); err != nil {
		health["status"] = "unhealthy"
		health["database"] = "disconnected"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["database"] = "connected"

	// Check Redis connection
	if err := s.orchestrator.GetRedis().HealthCheck(ctx); err != nil {
		health["status"] = "degraded"
		health["redis"] = "disconnected"
	} else {
		health["redis"] = "connected"
	}

	c.JSON(http.StatusOK, health)
}

// Get the assembled dashboard, cached in Redis for a short TTL
func (s *Server) handleGetDashboard(c *gin.Context) {
	tenantID := c.Param("tenantId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cacheKey := "dashboard:" + tenantID
	if cached, err := s.orchestrator.GetRedis().Get(ctx, cacheKey).Bytes(); err == nil {
		c.Data(http.StatusOK, "application/json", cached)
		return
	} else if err != redis.Nil {
		logger.Error("Failed to read dashboard cache", zap.String("tenant_id", tenantID), logger.Err(err))
	}

	dashboard, err := s.orchestrator.GetAssembler().Assemble(ctx, tenantID)
	if err != nil {
		logger.Error("Failed to assemble dashboard", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assemble dashboard"})
		return
	}

	if body, err := json.Marshal(dashboard); err == nil {
		if err := s.orchestrator.GetRedis().Set(ctx, cacheKey, body, s.config.DashboardCacheTTL).Err(); err != nil {
			logger.Error("Failed to cache dashboard", zap.String("tenant_id", tenantID), logger.Err(err))
		}
	}

	c.JSON(http.StatusOK, dashboard)
}

// Get the latest health snapshot for a tenant
func (s *Server) handleGetSystemHealth(c *gin.Context) {
	tenantID := c.Param("tenantId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health, err := s.orchestrator.GetStore().SystemHealth.Latest(ctx, tenantID)
	if err != nil {
		logger.Error("Failed to query system health", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve system health"})
		return
	}
	if health == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No system health recorded"})
		return
	}

	c.JSON(http.StatusOK, health)
}

// Upsert the health snapshot for a tenant
func (s *Server) handleUpsertSystemHealth(c *gin.Context) {
	tenantID := c.Param("tenantId")

	var health models.SystemHealth
	if err := c.ShouldBindJSON(&health); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	health.TenantID = tenantID
	if health.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.orchestrator.GetStore().SystemHealth.Upsert(ctx, &health); err != nil {
		logger.Error("Failed to upsert system health", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store system health"})
		return
	}

	switch health.Status {
	case models.HealthStatusDegraded, models.HealthStatusUnhealthy, models.HealthStatusCritical:
		s.orchestrator.GetTelemetry().CaptureMessage(
			fmt.Sprintf("System health is %s", health.Status),
			telemetry.SeverityWarning,
			map[string]interface{}{
				"tenant_id":     tenantID,
				"overall_score": health.OverallScore,
				"status":        health.Status,
			})
	}

	c.JSON(http.StatusOK, health)
}

// Get recent health checks for a tenant
func (s *Server) handleGetHealthChecks(c *gin.Context) {
	tenantID := c.Param("tenantId")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 1 || limit > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	checks, err := s.orchestrator.GetStore().HealthChecks.Recent(ctx, tenantID, limit)
	if err != nil {
		logger.Error("Failed to query health checks", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve health checks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checks":  checks,
		"summary": monitoring.SummarizeHealthChecks(checks),
	})
}

// Get the last observed status per service from the Redis mirror
func (s *Server) handleGetCurrentServiceStatus(c *gin.Context) {
	tenantID := c.Param("tenantId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	key := "health:" + tenantID + ":services"
	result, err := s.orchestrator.GetRedis().HGetAll(ctx, key).Result()
	if err != nil {
		logger.Error("Failed to get service statuses from Redis",
			zap.String("tenant_id", tenantID),
			logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve service statuses"})
		return
	}

	if len(result) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No service statuses available"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Record a single health check result
func (s *Server) handleRecordHealthCheck(c *gin.Context) {
	tenantID := c.Param("tenantId")

	var check models.HealthCheck
	if err := c.ShouldBindJSON(&check); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	check.TenantID = tenantID
	if check.CheckName == "" || check.ServiceName == "" || check.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_name, service_name and status are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.orchestrator.GetStore().HealthChecks.Insert(ctx, &check); err != nil {
		logger.Error("Failed to record health check", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record health check"})
		return
	}

	c.JSON(http.StatusCreated, check)
}

// Get incidents, active ones by default
func (s *Server) handleGetIncidents(c *gin.Context) {
	tenantID := c.Param("tenantId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var incidents []models.Incident
	var err error
	if c.Query("scope") == "all" {
		incidents, err = s.orchestrator.GetStore().Incidents.Recent(ctx, tenantID, 100)
	} else {
		incidents, err = s.orchestrator.GetStore().Incidents.Active(ctx, tenantID)
	}
	if err != nil {
		logger.Error("Failed to query incidents", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"incidents": incidents,
		"summary":   monitoring.SummarizeIncidents(incidents),
	})
}

// Get single incident
func (s *Server) handleGetIncident(c *gin.Context) {
	incidentID := c.Param("incidentId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	incident, err := s.orchestrator.GetStore().Incidents.Get(ctx, incidentID)
	if err != nil {
		logger.Error("Failed to query incident", zap.String("incident_id", incidentID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incident"})
		return
	}
	if incident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	c.JSON(http.StatusOK, incident)
}

// Create an incident
func (s *Server) handleCreateIncident(c *gin.Context) {
	tenantID := c.Param("tenantId")

	var incident models.Incident
	if err := c.ShouldBindJSON(&incident); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	incident.TenantID = tenantID
	if incident.Title == "" || incident.Severity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and severity are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.orchestrator.GetStore().Incidents.Insert(ctx, &incident); err != nil {
		logger.Error("Failed to create incident", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create incident"})
		return
	}

	if incident.Severity == models.SeverityCritical {
		s.orchestrator.GetTelemetry().CaptureMessage(
			fmt.Sprintf("Critical incident: %s", incident.Title),
			telemetry.SeverityFatal,
			map[string]interface{}{
				"tenant_id":   tenantID,
				"incident_id": incident.ID,
			})
	}

	if notifier := s.orchestrator.GetNotifier(); notifier != nil {
		if err := notifier.IncidentCreated(&incident); err != nil {
			logger.Error("Failed to publish incident event", zap.String("incident_id", incident.ID), logger.Err(err))
		}
	}

	logger.Info("Incident created",
		zap.String("incident_id", incident.ID),
		zap.String("severity", incident.Severity))
	c.JSON(http.StatusCreated, incident)
}

type incidentPatchRequest struct {
	Title            *string                `json:"title"`
	Description      *string                `json:"description"`
	Severity         *string                `json:"severity"`
	Status           *string                `json:"status"`
	AffectedServices []string               `json:"affected_services"`
	AffectedUsers    *int                   `json:"affected_users"`
	BusinessImpact   *string                `json:"business_impact"`
	ResolvedAt       *time.Time             `json:"resolved_at"`
	AcknowledgedAt   *time.Time             `json:"acknowledged_at"`
	AcknowledgedBy   *string                `json:"acknowledged_by"`
	RootCause        *string                `json:"root_cause"`
	ResolutionNotes  *string                `json:"resolution_notes"`
	ResolutionSteps  []string               `json:"resolution_steps"`
	Tags             []string               `json:"tags"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// Update an incident
func (s *Server) handleUpdateIncident(c *gin.Context) {
	incidentID := c.Param("incidentId")

	var req incidentPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	incident, err := s.orchestrator.GetStore().Incidents.Update(ctx, incidentID, store.IncidentPatch{
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		Status:           req.Status,
		AffectedServices: req.AffectedServices,
		AffectedUsers:    req.AffectedUsers,
		BusinessImpact:   req.BusinessImpact,
		ResolvedAt:       req.ResolvedAt,
		AcknowledgedAt:   req.AcknowledgedAt,
		AcknowledgedBy:   req.AcknowledgedBy,
		RootCause:        req.RootCause,
		ResolutionNotes:  req.ResolutionNotes,
		ResolutionSteps:  req.ResolutionSteps,
		Tags:             req.Tags,
		Metadata:         req.Metadata,
	})
	if err != nil {
		logger.Error("Failed to update incident", zap.String("incident_id", incidentID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update incident"})
		return
	}
	if incident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	c.JSON(http.StatusOK, incident)
}

// Get alerts, all or triggered only
func (s *Server) handleGetAlerts(c *gin.Context) {
	tenantID := c.Param("tenantId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var alerts []models.Alert
	var err error
	if c.Query("triggered") == "true" {
		alerts, err = s.orchestrator.GetStore().Alerts.Triggered(ctx, tenantID)
	} else {
		alerts, err = s.orchestrator.GetStore().Alerts.All(ctx, tenantID)
	}
	if err != nil {
		logger.Error("Failed to query alerts", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":  alerts,
		"summary": monitoring.SummarizeAlerts(alerts),
	})
}

// Create an alert definition
func (s *Server) handleCreateAlert(c *gin.Context) {
	tenantID := c.Param("tenantId")

	var alert models.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	alert.TenantID = tenantID
	if alert.Name == "" || alert.MetricName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and metric_name are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.orchestrator.GetStore().Alerts.Insert(ctx, &alert); err != nil {
		logger.Error("Failed to create alert", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

type alertPatchRequest struct {
	Name                    *string                `json:"name"`
	Description             *string                `json:"description"`
	AlertType               *string                `json:"alert_type"`
	MetricName              *string                `json:"metric_name"`
	Operator                *string                `json:"operator"`
	ThresholdValue          *float64               `json:"threshold_value"`
	EvaluationWindowMinutes *int                   `json:"evaluation_window_minutes"`
	Severity                *string                `json:"severity"`
	IsEnabled               *bool                  `json:"is_enabled"`
	CooldownMinutes         *int                   `json:"cooldown_minutes"`
	NotificationChannels    []string               `json:"notification_channels"`
	NotificationTemplate    *string                `json:"notification_template"`
	LastTriggeredAt         *time.Time             `json:"last_triggered_at"`
	TriggerCount            *int                   `json:"trigger_count"`
	IsTriggered             *bool                  `json:"is_triggered"`
	Metadata                map[string]interface{} `json:"metadata"`
}

// Update an alert, publishing an event when it flips to triggered
func (s *Server) handleUpdateAlert(c *gin.Context) {
	alertID := c.Param("alertId")

	var req alertPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	alert, err := s.orchestrator.GetStore().Alerts.Update(ctx, alertID, store.AlertPatch{
		Name:                    req.Name,
		Description:             req.Description,
		AlertType:               req.AlertType,
		MetricName:              req.MetricName,
		Operator:                req.Operator,
		ThresholdValue:          req.ThresholdValue,
		EvaluationWindowMinutes: req.EvaluationWindowMinutes,
		Severity:                req.Severity,
		IsEnabled:               req.IsEnabled,
		CooldownMinutes:         req.CooldownMinutes,
		NotificationChannels:    req.NotificationChannels,
		NotificationTemplate:    req.NotificationTemplate,
		LastTriggeredAt:         req.LastTriggeredAt,
		TriggerCount:            req.TriggerCount,
		IsTriggered:             req.IsTriggered,
		Metadata:                req.Metadata,
	})
	if err != nil {
		logger.Error("Failed to update alert", zap.String("alert_id", alertID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
		return
	}
	if alert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	if req.IsTriggered != nil && *req.IsTriggered {
		if notifier := s.orchestrator.GetNotifier(); notifier != nil {
			if err := notifier.AlertTriggered(alert); err != nil {
				logger.Error("Failed to publish alert event", zap.String("alert_id", alertID), logger.Err(err))
			}
		}
		logger.Info("Alert triggered", zap.String("alert_id", alertID), zap.String("severity", alert.Severity))
	}

	c.JSON(http.StatusOK, alert)
}

// Get metric rows inside a trailing window
func (s *Server) handleGetMetrics(c *gin.Context) {
	tenantID := c.Param("tenantId")
	metricName := c.Query("name")

	hours := 1
	if raw := c.Query("hours"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &hours); err != nil || hours < 1 || hours > 168 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be between 1 and 168"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	metrics, err := s.orchestrator.GetStore().Metrics.Since(ctx, tenantID, since, metricName)
	if err != nil {
		logger.Error("Failed to query metrics", zap.String("tenant_id", tenantID), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant_id": tenantID,
		"since":     since,
		"metrics":   metrics,
		"count":     len(metrics),
	})
}

// Get the latest cached metric values
func (s *Server) handleGetCurrentMetrics(c *gin.Context) {
	tenantID := c.Param("tenantId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	key := "metrics:" + tenantID + ":latest"
	result, err := s.orchestrator.GetRedis().HGetAll(ctx, key).Result()
	if err != nil {
		logger.Error("Failed to get current metrics from Redis",
			zap.String("tenant_id", tenantID),
			logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve current metrics"})
		return
	}

	if len(result) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No current metrics available"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// WebSocket for periodic dashboard pushes
func (s *Server) handleWebSocketDashboard(c *gin.Context) {
	tenantID := c.Param("tenantId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket connection for dashboard", logger.Err(err))
		return
	}
	defer conn.Close()

	logger.Info("WebSocket dashboard stream started", zap.String("tenant_id", tenantID))

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetchCtx, fetchCancel := context.WithTimeout(ctx, 5*time.Second)
			dashboard, err := s.orchestrator.GetAssembler().Assemble(fetchCtx, tenantID)
			fetchCancel()
			if err != nil {
				logger.Error("Failed to assemble dashboard for WebSocket",
					zap.String("tenant_id", tenantID),
					logger.Err(err))
				continue
			}

			if err := conn.WriteJSON(dashboard); err != nil {
				logger.Error("Failed to write dashboard to WebSocket", logger.Err(err))
				return
			}
		}
	}
}

// Middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log after request
		duration := time.Since(start)
		statusCode := c.Writer.Status()

		logger.Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", statusCode),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func (s *Server) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Set a default timeout of 30 seconds for all requests
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
