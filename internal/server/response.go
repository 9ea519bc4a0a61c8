package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/MarcoPoloResearchLab/prm-review/internal/meetings"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	messageInternalError      = "Internal server error"
	messageUnauthorized       = "Unauthorized"
	messageInvalidRequestBody = "Invalid request body"
	messageRouteNotFound      = "Route not found"
)

// codedError is implemented by the service packages' ServiceError types.
type codedError interface {
	error
	Code() string
}

type responseEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

func respondOK(c *gin.Context, message string, result any) {
	c.JSON(http.StatusOK, responseEnvelope{Status: http.StatusOK, Message: message, Result: result})
}

func respondFailure(c *gin.Context, status int, message string) {
	c.JSON(status, responseEnvelope{Status: status, Message: message})
}

func abortWithEnvelope(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, responseEnvelope{Status: status, Message: message})
}

// respondError maps rule violations to client envelopes and hands anything else
// to the error middleware.
func respondError(c *gin.Context, err error) {
	if violation, ok := meetings.AsRuleViolation(err); ok {
		status := http.StatusBadRequest
		if violation.Kind == meetings.ViolationNotFound {
			status = http.StatusNotFound
		}
		respondFailure(c, status, violation.Message)
		return
	}
	_ = c.Error(err)
}

// bindJSON decodes the request body; an empty body decodes to the zero payload.
func bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil && !errors.Is(err, io.EOF) {
		respondFailure(c, http.StatusBadRequest, messageInvalidRequestBody)
		return false
	}
	return true
}

func (h *httpHandler) handleErrors(c *gin.Context) {
	c.Next()
	if len(c.Errors) == 0 {
		return
	}
	last := c.Errors.Last()
	fields := append(requestFields(c), zap.Error(last.Err), zap.Stack("stack"))
	var coded codedError
	if errors.As(last.Err, &coded) {
		fields = append(fields, zap.String("code", coded.Code()))
	}
	h.logger.Error("request failed", fields...)
	if c.Writer.Written() {
		return
	}
	respondFailure(c, http.StatusInternalServerError, messageInternalError)
}

func (h *httpHandler) recoverPanic(c *gin.Context, recovered any) {
	fields := append(requestFields(c), zap.Any("panic", recovered), zap.Stack("stack"))
	h.logger.Error("request panicked", fields...)
	abortWithEnvelope(c, http.StatusInternalServerError, messageInternalError)
}

func (h *httpHandler) handleNoRoute(c *gin.Context) {
	respondFailure(c, http.StatusNotFound, messageRouteNotFound)
}

func requestFields(c *gin.Context) []zap.Field {
	return []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.String("route", c.FullPath()),
	}
}
