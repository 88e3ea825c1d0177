package monitoring

import (
	"context"
	"time"

	"github.com/akeren/waitlist-api/config/router"
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/internal/models"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"github.com/akeren/waitlist-api/pkg/ratelimit"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

type Cache interface {
	Ping(ctx context.Context) error
}

type MonitoringController struct {
	db         *gorm.DB
	logger     *log.Logger
	cache      Cache
	repository StatusCheckRepository
	startTime  time.Time
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Cache) *router.RESTController {
	ctrl := &MonitoringController{
		db:         db,
		logger:     logger,
		cache:      cache,
		repository: NewStatusCheckRepository(db),
		startTime:  time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/api",
		func(routerService *router.RouterService, controller *router.RESTController) {

			// "/api/" is registered too, otherwise the trailing-slash redirect answers it.
			livenessLimiter := createMonitoringRateLimiter()
			for _, path := range []string{"", "/"} {
				routerService.AddGetHandler(controller, livenessLimiter, path, func(c *router.RequestContext) *router.ServiceResult {
					return ctrl.monitor(c)
				})
			}

			routerService.AddGetHandler(controller, createMonitoringRateLimiter(), "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})

			routerService.AddGetHandler(controller, nil, "status", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.listStatusChecks(c)
			})

			routerService.AddPostHandler(controller, nil, "status", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.createStatusCheck(c)
			})
		},
	)
}

func createMonitoringRateLimiter() ratelimit.RateLimiter {

	const monitoringRequestsPerMinute = 10 // More restrictive than default 100

	config := &ratelimit.RateLimitConfig{
		Requests: monitoringRequestsPerMinute,
		Window:   time.Minute,
	}

	return ratelimit.NewRateLimiter(config)
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Info("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	healthStatus := ctrl.performHealthChecks(ctx, logger)

	return router.OKResult(healthStatus, "waitlist-api health check completed")
}

func (ctrl *MonitoringController) monitor(
	c *router.RequestContext,
) *router.ServiceResult {
	return router.OKResult("Waitlist API is operational.", "Monitoring successful")
}

func (ctrl *MonitoringController) listStatusChecks(c *router.RequestContext) *router.ServiceResult {
	checks, err := ctrl.repository.List(c.Request.Context())
	if err != nil {
		router.GetLogger(c).Error("Failed to list status checks", "error", err)
		return router.ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
	}

	response := make([]StatusCheckResponse, 0, len(checks))
	for _, check := range checks {
		response = append(response, ToStatusCheckResponse(check))
	}
	return router.OKResult(response, "Status checks retrieved successfully")
}

func (ctrl *MonitoringController) createStatusCheck(c *router.RequestContext) *router.ServiceResult {
	logger := router.GetLogger(c)

	var req CreateStatusCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind status check", "error", err)
		validationErrors := apperrors.FormatValidationErrors(err, &req)
		if apperrors.IsValidationError(err) {
			return router.UnprocessableEntityResult("Invalid request payload", validationErrors)
		}
		return router.BadRequestResult("Invalid request body", nil)
	}

	check, err := ctrl.repository.Create(c.Request.Context(), &models.StatusCheck{ClientName: req.ClientName})
	if err != nil {
		logger.Error("Failed to record status check", "error", err)
		return router.ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
	}

	return router.CreatedResult(ToStatusCheckResponse(check), "Status check")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}

	checkDatabaseConnectivity(ctx, ctrl, &status, logger)

	checkCacheConnectivity(ctx, ctrl, &status, logger)

	return status
}

func checkCacheConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.cache == nil {
		status.Cache = 0
		logger.Info("Cache not configured, cache health check skipped")
		return
	}

	if ctrl.cache.Ping(ctx) == nil {
		status.Cache = 1
		logger.Info("Cache health check passed")
	} else {
		status.Cache = 0
		logger.Error("Cache health check failed")
	}
}

func checkDatabaseConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.checkDatabase(ctx) {
		status.Database = 1
		logger.Info("Database health check passed")
	} else {
		status.Database = 0
		logger.Error("Database health check failed")
	}
}

func (ctrl *MonitoringController) checkDatabase(ctx context.Context) bool {
	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return false
	}

	return sqlDB.PingContext(ctx) == nil
}
