package repository

import (
	"context"
	"time"

	"enrollment-service/internal/domain"

	"github.com/shopspring/decimal"
)

// EnrollmentRepository is the single source of truth for purchase state.
// Lookups return (nil, nil) when nothing matches.
type EnrollmentRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Enrollment, error)
	FindByCourseAndStudent(ctx context.Context, courseID, studentID uint64) (*domain.Enrollment, error)
	// FindByOrderID matches the stamped order first, then any order ever
	// issued for the enrollment.
	FindByOrderID(ctx context.Context, orderID string) (*domain.Enrollment, error)
	// HasOrder reports whether orderID was issued for the enrollment.
	HasOrder(ctx context.Context, enrollmentID uint64, orderID string) (bool, error)

	// UpsertOrder creates or reuses the (course, student) row and stamps the
	// attempt on it with status created, recording the order in the
	// enrollment's order history. A paid row is returned unchanged.
	UpsertOrder(ctx context.Context, attempt domain.OrderAttempt) (*domain.Enrollment, error)
	// MarkPaid moves the enrollment to paid unless it already is, and adds the
	// student to the course's enrolled set in the same transaction. The bool
	// reports whether this call performed the transition.
	MarkPaid(ctx context.Context, id uint64, proof domain.PaymentProof) (bool, error)
	// MarkFailed moves a non-paid enrollment to failed.
	MarkFailed(ctx context.Context, id uint64) (bool, error)

	AddCompletedLecture(ctx context.Context, enrollmentID uint64, lectureID string) error
	CountCompletedLectures(ctx context.Context, enrollmentID uint64) (int, error)
	SetProgress(ctx context.Context, enrollmentID uint64, percent int) error

	ListPaidByStudent(ctx context.Context, studentID uint64) ([]domain.Enrollment, error)
	ListPaidByCourses(ctx context.Context, courseIDs []uint64) ([]domain.Enrollment, error)
	ListAll(ctx context.Context) ([]domain.Enrollment, error)
	CountAll(ctx context.Context) (int64, error)
	// PaidSummary aggregates paid enrollments; a nil courseIDs means every course.
	PaidSummary(ctx context.Context, courseIDs []uint64) (PaidSummary, error)
}

type PaidSummary struct {
	Enrollments      int64
	DistinctStudents int64
	Total            decimal.Decimal
}

// CourseRepository is the read side of the course catalog. The enrolled-student
// set is written by EnrollmentRepository.MarkPaid.
type CourseRepository interface {
	GetCourse(ctx context.Context, id uint64) (*domain.Course, error)
	ListByInstructor(ctx context.Context, instructorID uint64) ([]domain.Course, error)
}

type WebhookEventRepository interface {
	FindByProviderEventID(ctx context.Context, provider, eventID string) (*domain.WebhookEvent, error)
	// Record inserts evt, or loads the existing row for the same provider event
	// into evt.
	Record(ctx context.Context, evt *domain.WebhookEvent) error
	MarkProcessed(ctx context.Context, id uint64, processingErr string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
