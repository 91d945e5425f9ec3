package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	engine  *services.ReconciliationService
	queries *services.EnrollmentQueryService
	logger  *zap.Logger

	signatureHeader string
	eventIDHeader   string
}

type HandlerOptions struct {
	SignatureHeader string
	EventIDHeader   string
}

func NewHandler(engine *services.ReconciliationService, queries *services.EnrollmentQueryService, logger *zap.Logger, opts HandlerOptions) *Handler {
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = "X-Razorpay-Signature"
	}
	if opts.EventIDHeader == "" {
		opts.EventIDHeader = "X-Razorpay-Event-Id"
	}
	return &Handler{
		engine:          engine,
		queries:         queries,
		logger:          logger,
		signatureHeader: opts.SignatureHeader,
		eventIDHeader:   opts.EventIDHeader,
	}
}

// RegisterRoutes mounts the API. auth authenticates every non-public route.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	student := RequireRole(services.RoleStudent)
	teacher := RequireRole(services.RoleTeacher)
	admin := RequireRole(services.RoleAdmin)

	api := r.Group("/api")
	// Without a secret every delivery would be rejected and retried forever.
	if h.engine.WebhookEnabled() {
		api.POST("/payment/webhook", h.Webhook)
	}

	authed := api.Group("", auth)
	authed.POST("/payment/create-order", student, h.CreateOrder)
	authed.POST("/payment/verify", student, h.VerifyPayment)
	authed.POST("/payment/enroll-free", student, h.EnrollFree)
	if h.engine.SandboxEnabled() {
		authed.POST("/payment/sandbox/pay", student, h.SandboxPay)
	}
	authed.GET("/payment/my", student, h.ListMyEnrollments)
	authed.POST("/student/courses/:id/progress", student, h.UpdateProgress)

	authed.GET("/payment/all", admin, h.ListTransactions)
	authed.GET("/stats/summary", admin, h.PlatformStats)
	authed.GET("/stats/teacher", teacher, h.TeacherStats)
	authed.GET("/stats/teacher/enrollments", teacher, h.TeacherEnrollments)
	authed.GET("/courses/:id/students", RequireRole(services.RoleTeacher, services.RoleAdmin), h.ListCourseStudents)
}

func (h *Handler) bindCourse(c *gin.Context) (uint64, bool) {
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return 0, false
	}
	return req.CourseID, true
}

func courseParam(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidCourse
	}
	return id, nil
}

func (h *Handler) CreateOrder(c *gin.Context) {
	courseID, ok := h.bindCourse(c)
	if !ok {
		return
	}
	u, _ := currentUser(c)

	intent, err := h.engine.CreateOrder(c.Request.Context(), courseID, u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, intent)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "missing parameters")
		return
	}
	u, _ := currentUser(c)

	e, err := h.engine.VerifyPayment(c.Request.Context(), services.VerifyPaymentInput{
		StudentID:    u.ID,
		EnrollmentID: req.EnrollmentID,
		OrderID:      req.OrderID,
		PaymentID:    req.PaymentID,
		Signature:    req.Signature,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, e)
}

func (h *Handler) EnrollFree(c *gin.Context) {
	courseID, ok := h.bindCourse(c)
	if !ok {
		return
	}
	u, _ := currentUser(c)

	e, err := h.engine.EnrollFree(c.Request.Context(), courseID, u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, e)
}

func (h *Handler) SandboxPay(c *gin.Context) {
	courseID, ok := h.bindCourse(c)
	if !ok {
		return
	}
	u, _ := currentUser(c)

	e, err := h.engine.SandboxPay(c.Request.Context(), courseID, u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, e)
}

// Webhook verifies the signature over the exact bytes received, so the body
// must not be bound or re-encoded before this point.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}

	result, err := h.engine.HandleWebhook(c.Request.Context(), body,
		c.GetHeader(h.signatureHeader), c.GetHeader(h.eventIDHeader))
	if err != nil {
		if errors.Is(err, domain.ErrWebhookSignature) || errors.Is(err, domain.ErrWebhookNotConfigured) {
			h.logger.Warn("webhook rejected", traceField(c), zap.Error(err))
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		h.fail(c, err)
		return
	}

	h.logger.Debug("webhook handled",
		traceField(c),
		zap.String("event_id", result.EventID),
		zap.String("result", result.Status),
		zap.Uint64("enrollment_id", result.EnrollmentID),
	)
	c.JSON(http.StatusOK, WebhookResponse{Status: "ok"})
}

func (h *Handler) ListMyEnrollments(c *gin.Context) {
	u, _ := currentUser(c)

	list, err := h.queries.ListMyEnrollments(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, list)
}

func (h *Handler) UpdateProgress(c *gin.Context) {
	courseID, err := courseParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req ProgressRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	u, _ := currentUser(c)

	result, err := h.queries.UpdateProgress(c.Request.Context(), courseID, u.ID, req.LectureID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, result)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	list, err := h.queries.ListCourseTransactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, list)
}

func (h *Handler) PlatformStats(c *gin.Context) {
	stats, err := h.queries.PlatformStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, stats)
}

func (h *Handler) TeacherStats(c *gin.Context) {
	u, _ := currentUser(c)

	stats, err := h.queries.TeacherStats(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, stats)
}

func (h *Handler) TeacherEnrollments(c *gin.Context) {
	u, _ := currentUser(c)

	list, err := h.queries.TeacherEnrollments(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, list)
}

func (h *Handler) ListCourseStudents(c *gin.Context) {
	courseID, err := courseParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	u, _ := currentUser(c)

	list, err := h.queries.ListCourseStudents(c.Request.Context(), courseID, u)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, list)
}
