package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/infra"
	"enrollment-service/internal/infra/gateway"
	"enrollment-service/internal/metrics"
	"enrollment-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("enrollment-service/services")

// ReconciliationDeps are the collaborators of the reconciliation engine.
// Secrets reach the engine only through Signer and Gateway.
type ReconciliationDeps struct {
	Enrollments repository.EnrollmentRepository
	Courses     repository.CourseRepository
	Webhooks    repository.WebhookEventRepository
	Gateway     infra.GatewayClient
	Signer      *gateway.Signer
	Publisher   infra.EventPublisher
	Cache       *EnrollmentCache
	Logger      *zap.Logger
}

type ReconciliationOptions struct {
	Currency       string
	SandboxEnabled bool
	// Provider labels rows in the webhook event log.
	Provider string
}

// ReconciliationService converges client order creation, client verification
// callbacks and gateway webhooks onto one enrollment per (course, student).
// Every paid transition is a conditional write, so concurrent confirmations
// of the same enrollment are harmless.
type ReconciliationService struct {
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	webhooks    repository.WebhookEventRepository
	gateway     infra.GatewayClient
	signer      *gateway.Signer
	publisher   infra.EventPublisher
	cache       *EnrollmentCache
	logger      *zap.Logger

	currency string
	sandbox  bool
	provider string
	now      func() time.Time
}

func NewReconciliationService(deps ReconciliationDeps, opts ReconciliationOptions) *ReconciliationService {
	if opts.Currency == "" {
		opts.Currency = domain.DefaultCurrency
	}
	if opts.Provider == "" {
		opts.Provider = "razorpay"
	}
	if deps.Publisher == nil {
		deps.Publisher = infra.NoopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ReconciliationService{
		enrollments: deps.Enrollments,
		courses:     deps.Courses,
		webhooks:    deps.Webhooks,
		gateway:     deps.Gateway,
		signer:      deps.Signer,
		publisher:   deps.Publisher,
		cache:       deps.Cache,
		logger:      deps.Logger,
		currency:    opts.Currency,
		sandbox:     opts.SandboxEnabled,
		provider:    opts.Provider,
		now:         time.Now,
	}
}

// WebhookEnabled reports whether HandleWebhook can verify deliveries.
func (s *ReconciliationService) WebhookEnabled() bool {
	return s.signer.WebhookConfigured()
}

// SandboxEnabled reports whether SandboxPay is reachable.
func (s *ReconciliationService) SandboxEnabled() bool {
	return s.sandbox
}

type CourseSummary struct {
	ID           uint64          `json:"id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	ThumbnailURL string          `json:"thumbnailUrl"`
}

// OrderIntent is what the browser checkout needs to collect a payment and
// echo back to VerifyPayment.
type OrderIntent struct {
	OrderID      string        `json:"orderId"`
	Amount       int64         `json:"amount"`
	Currency     string        `json:"currency"`
	Receipt      string        `json:"receipt"`
	KeyID        string        `json:"keyId"`
	EnrollmentID uint64        `json:"enrollmentId"`
	Course       CourseSummary `json:"course"`
}

type VerifyPaymentInput struct {
	StudentID    uint64
	EnrollmentID uint64
	OrderID      string
	PaymentID    string
	Signature    string
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *ReconciliationService) loadCourse(ctx context.Context, courseID uint64) (*domain.Course, error) {
	if courseID == 0 {
		return nil, domain.ErrInvalidCourse
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	if course == nil {
		return nil, domain.ErrCourseNotFound
	}
	if !course.PriceValid() {
		return nil, fmt.Errorf("%w: course %d has a negative price", domain.ErrInvalidCourse, courseID)
	}
	return course, nil
}

// CreateOrder reserves a gateway order for a paid course and stamps it on the
// student's single enrollment row. The amount always comes from the catalog.
func (s *ReconciliationService) CreateOrder(ctx context.Context, courseID, studentID uint64) (_ *OrderIntent, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.CreateOrder", trace.WithAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("student.id", int64(studentID)),
	))
	defer func() { endSpan(span, err) }()

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.IsFree() {
		return nil, domain.ErrCourseNotPurchasable
	}

	existing, err := s.enrollments.FindByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if existing.IsPaid() {
		return nil, domain.ErrAlreadyPurchased
	}

	receipt := uuid.NewString()
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   course.MinorUnits(),
		Currency: s.currency,
		Receipt:  receipt,
		Notes: map[string]string{
			noteCourseID:  strconv.FormatUint(courseID, 10),
			noteStudentID: strconv.FormatUint(studentID, 10),
		},
	})
	if err != nil {
		metrics.RecordGatewayOrder(string(domain.ErrorKind(err)))
		s.logger.Warn("Gateway order creation failed",
			zap.Uint64("course_id", courseID),
			zap.Uint64("student_id", studentID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	metrics.RecordGatewayOrder("created")

	currency := order.Currency
	if currency == "" {
		currency = s.currency
	}
	amount := order.Amount
	if amount == 0 {
		amount = course.MinorUnits()
	}

	enrollment, err := s.enrollments.UpsertOrder(ctx, domain.OrderAttempt{
		CourseID:  courseID,
		StudentID: studentID,
		Amount:    course.Price,
		Currency:  currency,
		Receipt:   receipt,
		OrderID:   order.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}
	// A confirmation won the race between the paid check and the upsert.
	if enrollment.IsPaid() {
		return nil, domain.ErrAlreadyPurchased
	}

	s.logger.Info("Order created",
		zap.Uint64("enrollment_id", enrollment.ID),
		zap.Uint64("course_id", courseID),
		zap.Uint64("student_id", studentID),
		zap.String("order_id", order.ID),
	)

	return &OrderIntent{
		OrderID:      order.ID,
		Amount:       amount,
		Currency:     currency,
		Receipt:      receipt,
		KeyID:        s.gateway.KeyID(),
		EnrollmentID: enrollment.ID,
		Course: CourseSummary{
			ID:           course.ID,
			Title:        course.Title,
			Price:        course.Price,
			ThumbnailURL: course.ThumbnailURL,
		},
	}, nil
}

// VerifyPayment checks the client-reported payment against the gateway
// signature and the orders issued for the enrollment. A valid proof for any
// issued order moves the enrollment to paid once; an invalid one marks it
// failed unless it is already paid.
func (s *ReconciliationService) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (_ *domain.Enrollment, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.VerifyPayment", trace.WithAttributes(
		attribute.Int64("enrollment.id", int64(in.EnrollmentID)),
		attribute.String("order.id", in.OrderID),
	))
	defer func() { endSpan(span, err) }()

	enrollment, err := s.enrollments.FindByID(ctx, in.EnrollmentID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, domain.ErrEnrollmentNotFound
	}
	if enrollment.StudentID != in.StudentID {
		return nil, domain.ErrNotAuthorized
	}

	log := s.logger.With(
		zap.Uint64("enrollment_id", enrollment.ID),
		zap.String("order_id", in.OrderID),
		zap.String("source", string(domain.SourceVerify)),
	)

	valid := s.signer.VerifyPayment(in.OrderID, in.PaymentID, in.Signature)
	if valid && in.OrderID != enrollment.GatewayOrderID {
		// A second checkout restamps the row; the earlier order stays payable.
		valid, err = s.enrollments.HasOrder(ctx, enrollment.ID, in.OrderID)
		if err != nil {
			return nil, fmt.Errorf("load order history: %w", err)
		}
	}
	if !valid {
		if enrollment.IsPaid() {
			metrics.RecordTransition(string(domain.SourceVerify), metrics.OutcomeRejected)
			log.Warn("Mismatched verification for paid enrollment ignored")
			return nil, domain.ErrSignatureMismatch
		}
		if _, err := s.enrollments.MarkFailed(ctx, enrollment.ID); err != nil {
			return nil, err
		}
		metrics.RecordTransition(string(domain.SourceVerify), metrics.OutcomeFailed)
		log.Warn("Payment signature mismatch")
		return nil, domain.ErrSignatureMismatch
	}

	won, err := s.enrollments.MarkPaid(ctx, enrollment.ID, domain.PaymentProof{
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
	})
	if err != nil {
		return nil, err
	}
	if won {
		s.afterPaid(ctx, enrollment, domain.SourceVerify)
	} else {
		metrics.RecordTransition(string(domain.SourceVerify), metrics.OutcomeNoop)
	}

	return s.populated(ctx, enrollment.ID)
}

// EnrollFree enrolls a student in a zero-priced course without a gateway.
func (s *ReconciliationService) EnrollFree(ctx context.Context, courseID, studentID uint64) (_ *domain.Enrollment, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.EnrollFree", trace.WithAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("student.id", int64(studentID)),
	))
	defer func() { endSpan(span, err) }()

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsFree() {
		return nil, domain.ErrCoursePaid
	}

	return s.settle(ctx, course, studentID, domain.SourceFree, domain.OrderAttempt{
		CourseID:  courseID,
		StudentID: studentID,
		Amount:    decimal.Zero,
		Currency:  s.currency,
	}, domain.PaymentProof{})
}

// SandboxPay marks a paid course as purchased without a gateway round trip.
// It is only reachable when the sandbox is enabled outside production.
func (s *ReconciliationService) SandboxPay(ctx context.Context, courseID, studentID uint64) (_ *domain.Enrollment, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.SandboxPay", trace.WithAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("student.id", int64(studentID)),
	))
	defer func() { endSpan(span, err) }()

	if !s.sandbox {
		return nil, domain.ErrSandboxDisabled
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.IsFree() {
		return nil, domain.ErrCourseNotPurchasable
	}

	ref := uuid.NewString()
	return s.settle(ctx, course, studentID, domain.SourceSandbox, domain.OrderAttempt{
		CourseID:  courseID,
		StudentID: studentID,
		Amount:    course.Price,
		Currency:  s.currency,
		Receipt:   ref,
	}, domain.PaymentProof{PaymentID: "sandbox_" + ref})
}

// settle upserts the (course, student) row and applies the paid transition.
// An already-paid row is returned as is.
func (s *ReconciliationService) settle(ctx context.Context, course *domain.Course, studentID uint64, source domain.PaymentSource, attempt domain.OrderAttempt, proof domain.PaymentProof) (*domain.Enrollment, error) {
	existing, err := s.enrollments.FindByCourseAndStudent(ctx, course.ID, studentID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if existing.IsPaid() {
		metrics.RecordTransition(string(source), metrics.OutcomeNoop)
		existing.Course = course
		return existing, nil
	}

	enrollment, err := s.enrollments.UpsertOrder(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("record enrollment: %w", err)
	}

	won := false
	if !enrollment.IsPaid() {
		won, err = s.enrollments.MarkPaid(ctx, enrollment.ID, proof)
		if err != nil {
			return nil, err
		}
	}
	if won {
		s.afterPaid(ctx, enrollment, source)
	} else {
		metrics.RecordTransition(string(source), metrics.OutcomeNoop)
	}

	out, err := s.enrollments.FindByID(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("reload enrollment: %w", err)
	}
	if out == nil {
		return nil, domain.ErrEnrollmentNotFound
	}
	out.Course = course
	return out, nil
}

// afterPaid runs once per enrollment, after the call that won the paid
// transition has committed.
func (s *ReconciliationService) afterPaid(ctx context.Context, e *domain.Enrollment, source domain.PaymentSource) {
	metrics.RecordTransition(string(source), metrics.OutcomePaid)
	s.cache.Invalidate(ctx, e.StudentID)

	log := s.logger.With(
		zap.Uint64("enrollment_id", e.ID),
		zap.Uint64("course_id", e.CourseID),
		zap.Uint64("student_id", e.StudentID),
		zap.String("source", string(source)),
	)
	log.Info("Enrollment paid")

	currency := e.Currency
	if currency == "" {
		currency = s.currency
	}
	evt := domain.EnrollmentPaidEvent{
		EnrollmentID: e.ID,
		CourseID:     e.CourseID,
		StudentID:    e.StudentID,
		Amount:       e.Amount,
		Currency:     currency,
		Source:       source,
		PaidAt:       s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, domain.EventEnrollmentPaid, evt); err != nil {
		log.Error("Failed to publish enrollment.paid event", zap.Error(err))
	}
}

func (s *ReconciliationService) populated(ctx context.Context, id uint64) (*domain.Enrollment, error) {
	e, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload enrollment: %w", err)
	}
	if e == nil {
		return nil, domain.ErrEnrollmentNotFound
	}
	course, err := s.courses.GetCourse(ctx, e.CourseID)
	if err != nil {
		s.logger.Warn("Course lookup failed", zap.Uint64("course_id", e.CourseID), zap.Error(err))
	}
	e.Course = course
	return e, nil
}
