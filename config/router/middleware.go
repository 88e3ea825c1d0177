package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akeren/waitlist-api/internal/log"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"github.com/akeren/waitlist-api/pkg/ratelimit"
	"github.com/akeren/waitlist-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

const correlationIDHeader = "X-Correlation-ID"

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(correlationIDHeader))
		if id == "" || len(id) > 128 {
			id = log.GenerateCorrelationID()
		}
		c.Request = c.Request.WithContext(log.ContextWithCorrelationID(c.Request.Context(), id))
		c.Header(correlationIDHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatedLogger := routerService.logger.WithCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(log.ContextWithLogger(c.Request.Context(), correlatedLogger))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		GetLogger(c).Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := int64(utils.GetEnvPositiveInt("MAX_REQUEST_BODY_BYTES", 1<<20))

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResult(
				http.StatusRequestEntityTooLarge,
				"Request payload too large",
				nil,
			).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware reads CORS_ALLOWED_ORIGIN (comma separated, or "*") once.
// Disallowed origins get no CORS headers and the browser blocks them.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	allowedOrigins := splitAndTrim(utils.GetEnvTrimmed("CORS_ALLOWED_ORIGIN"))
	if len(allowedOrigins) == 0 {
		routerService.logger.Warn("CORS_ALLOWED_ORIGIN not set; cross-origin requests will be denied")
	}

	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowed := wildcard
		for _, o := range allowedOrigins {
			if o == origin {
				allowed = true
				break
			}
		}

		if !allowed {
			GetLogger(c).Warn("CORS origin not allowed", "origin", origin)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With, X-Correlation-ID")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Retry-After, X-RateLimit-Limit, X-RateLimit-Window, X-Correlation-ID, Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(apperrors.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), routerService.middlewareConfig.TimeoutDuration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// Gin's Context is not safe for concurrent use, so c.Next stays on
		// this goroutine. In-flight enforcement is the server's Read/WriteTimeout.
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			GetLogger(c).Warn("Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout, ErrorResult(
				apperrors.StatusRequestTimeout,
				"Request timeout",
				nil,
			).ToJSON())
		}
	}
}

// resolveLimiter picks the limiter for the matched route: handler override,
// then controller override, then the router-wide limiter. A nil controller
// means the route was registered outside MountController.
func (routerService *RouterService) resolveLimiter(c *gin.Context) (ratelimit.RateLimiter, *RESTController) {
	handlerKey := routerService.keyForPathAndMethod(c.FullPath(), c.Request.Method)
	controller := routerService.handlerToControllerMap[handlerKey]
	if controller == nil {
		return nil, nil
	}

	if limiter, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return limiter, controller
	}
	if limiter, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return limiter, controller
	}
	return routerService.rateLimiter, controller
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter, controller := routerService.resolveLimiter(c)
		if controller == nil {
			GetLogger(c).Error("No controller mapping for request; was the handler registered outside MountController?",
				"path", c.Request.URL.Path, "method", c.Request.Method)
			c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResult(fmt.Sprintf("There is no handler configured to handle any resource at the path %s", c.Request.URL.Path)).ToJSON())
			return
		}

		clientIP := c.ClientIP()
		limit, window := limiter.GetLimitDetails()

		limited, err := limiter.IsLimited(clientIP)
		if err != nil {
			// Fail open: an unavailable limiter backend must not take the API down.
			GetLogger(c).Error("Rate limiter error", "error", err, "client_ip", clientIP)
		} else if limited {
			GetLogger(c).Warn("Rate limit exceeded", "client_ip", clientIP, "path", c.FullPath())
			result := TooManyRequestsResult(limit, window)
			for k, v := range result.Headers {
				c.Header(k, v)
			}
			c.AbortWithStatusJSON(result.StatusCode, result.ToJSON())
			return
		}

		for k, v := range RateLimitHeaders(limit, window) {
			c.Header(k, v)
		}
		c.Next()
	}
}
