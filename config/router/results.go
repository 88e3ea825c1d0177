package router

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/akeren/waitlist-api/internal/log"
)

func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Data:       data,
		Message:    message,
	}
}

func CreatedResult(data any, resourceName string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusCreated,
		Data:       data,
		Message:    resourceName + " created successfully",
	}
}

func FileResult(contentType, filename string, content []byte) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		File: &FileBody{
			ContentType: contentType,
			Filename:    filename,
			Content:     content,
		},
	}
}

// RateLimitHeaders describes a limit to the caller.
func RateLimitHeaders(limit int, window time.Duration) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":  strconv.Itoa(limit),
		"X-RateLimit-Window": window.String(),
	}
}

// TooManyRequestsResult builds a 429 carrying Retry-After and the limit headers.
func TooManyRequestsResult(limit int, window time.Duration) *ServiceResult {
	retryAfterSeconds := int(math.Ceil(window.Seconds()))
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	retryAfter := strconv.Itoa(retryAfterSeconds)

	result := &ServiceResult{
		StatusCode: http.StatusTooManyRequests,
		Data: RateLimitResponse{
			Limit:      limit,
			Window:     window.String(),
			RetryAfter: retryAfter,
		},
		Message: "Too many requests, please try again later",
		Headers: RateLimitHeaders(limit, window),
	}
	return result.WithHeader("Retry-After", retryAfter)
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusBadRequest,
		Data:       payload,
		Message:    message,
	}
}

func UnprocessableEntityResult(message string, payload any) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusUnprocessableEntity,
		Data:       payload,
		Message:    message,
	}
}

func NotFoundResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusNotFound,
		Data:       nil,
		Message:    message,
	}
}

func InternalServerErrorResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusInternalServerError,
		Data:       nil,
		Message:    message,
	}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
	}
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%s", filename)
}
