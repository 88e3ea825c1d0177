package waitlist

import (
	"errors"

	"github.com/akeren/waitlist-api/config/router"
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/pkg/constants"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"gorm.io/gorm"
)

const MountPoint = "/api/waitlist"

func NewWaitlistController(db *gorm.DB, logger *log.Logger, opts ...Option) *router.RESTController {
	return router.NewRESTController(
		"WaitlistController",
		MountPoint,
		func(rs *router.RouterService, c *router.RESTController) {
			// Metrics go first so an explicit WithMetrics still wins.
			options := append([]Option{WithMetrics(NewMetrics(rs.MetricsRegisterer()))}, opts...)
			service := newServiceForDB(db, logger, options...)

			// The intake limiter runs inside the guard chain, after the
			// honeypot, so these routes keep the router-wide limit only.
			rs.AddPostHandler(c, nil, "", submitHandler(service))
			rs.AddGetHandler(c, nil, "", listHandler(service))
			rs.AddGetHandler(c, nil, "export.csv", exportHandler(service))
		},
	)
}

func submitHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SubmitRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind waitlist submission", "error", err)
			validationErrors := apperrors.FormatValidationErrors(err, &req)
			if apperrors.IsValidationError(err) {
				return router.UnprocessableEntityResult("Invalid submission", validationErrors)
			}
			if len(validationErrors) > 0 {
				return router.BadRequestResult("Invalid request payload", validationErrors)
			}
			return router.BadRequestResult("Invalid request body", nil)
		}

		meta := RequestMeta{
			ClientIP:  ctx.ClientIP(),
			UserAgent: ctx.Request.UserAgent(),
			Referer:   ctx.Request.Referer(),
		}

		response, err := service.Submit(ctx.Request.Context(), &req, meta)
		if err != nil {
			return errorResult(err)
		}

		return router.CreatedResult(response, "Waitlist submission")
	}
}

func listHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.List(ctx.Request.Context())
		if err != nil {
			return errorResult(err)
		}

		return router.OKResult(response, "Waitlist submissions retrieved successfully")
	}
}

func exportHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		content, err := service.ExportCSV(ctx.Request.Context())
		if err != nil {
			return errorResult(err)
		}

		return router.FileResult(ExportContentType, constants.ExportFilename, content)
	}
}

func errorResult(err error) *router.ServiceResult {
	var limited *RateLimitedError
	if errors.As(err, &limited) {
		result := router.TooManyRequestsResult(limited.Limit, limited.Window)
		result.Message = apperrors.GetHumanReadableMessage(err)
		return result
	}

	return router.ErrorResult(
		apperrors.HTTPStatusCode(err),
		apperrors.GetHumanReadableMessage(err),
		nil,
	)
}
