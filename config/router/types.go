package router

import (
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

// ServiceResult is what every handler returns. It is rendered as the
// {code, data, message} envelope unless File is set, in which case the raw
// file body is written instead.
type ServiceResult struct {
	StatusCode int               `json:"code"`
	Data       any               `json:"data"`
	Message    string            `json:"message"`
	Headers    map[string]string `json:"-"`
	File       *FileBody         `json:"-"`
}

// FileBody is a downloadable attachment.
type FileBody struct {
	ContentType string
	Filename    string
	Content     []byte
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

type HandlerFunction func(*RequestContext) *ServiceResult

type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func (result *ServiceResult) ToJSON() gin.H {
	return gin.H{
		"code":    result.StatusCode,
		"data":    result.Data,
		"message": result.Message,
	}
}

// WithHeader sets a response header and returns the result for chaining.
func (result *ServiceResult) WithHeader(key, value string) *ServiceResult {
	if result.Headers == nil {
		result.Headers = make(map[string]string)
	}
	result.Headers[key] = value
	return result
}

func (result *ServiceResult) IsSuccess() bool {
	return result.StatusCode >= 200 && result.StatusCode < 300
}

func (result *ServiceResult) IsError() bool {
	return result.StatusCode >= 400
}
