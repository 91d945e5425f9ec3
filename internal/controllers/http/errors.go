package http

import (
	"net/http"

	"enrollment-service/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// KindInvalidRequest covers bodies and path params that fail to bind.
const KindInvalidRequest domain.Kind = "INVALID_REQUEST"

const retryAfterSeconds = "30"

var kindStatus = map[domain.Kind]int{
	KindInvalidRequest:              http.StatusBadRequest,
	domain.KindInvalidCourse:        http.StatusBadRequest,
	domain.KindCourseNotPurchasable: http.StatusBadRequest,
	domain.KindCoursePaid:           http.StatusBadRequest,
	domain.KindSignatureMismatch:    http.StatusBadRequest,
	domain.KindWebhookSignature:     http.StatusBadRequest,
	domain.KindWebhookNotConfigured: http.StatusBadRequest,
	domain.KindCourseNotFound:       http.StatusNotFound,
	domain.KindEnrollmentNotFound:   http.StatusNotFound,
	domain.KindSandboxDisabled:      http.StatusNotFound,
	domain.KindNotAuthorized:        http.StatusForbidden,
	domain.KindAlreadyPurchased:     http.StatusConflict,
	domain.KindGatewayRejected:      http.StatusBadGateway,
	domain.KindGatewayUnavailable:   http.StatusServiceUnavailable,
}

type errorResponse struct {
	Success bool        `json:"success"`
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

func statusFor(kind domain.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := domain.ErrorKind(err)
	status := statusFor(kind)

	message := err.Error()
	if kind == domain.KindInternal {
		h.logger.Error("request failed", traceField(c), zap.Error(err))
		message = "internal server error"
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.AbortWithStatusJSON(status, errorResponse{Kind: kind, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Kind: KindInvalidRequest, Message: message})
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
