package mocks

import (
	"context"
	"time"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/infra"
	"enrollment-service/internal/infra/gateway"
	"enrollment-service/internal/repository"

	"github.com/stretchr/testify/mock"
)

var (
	_ repository.EnrollmentRepository   = (*MockEnrollmentRepository)(nil)
	_ repository.CourseRepository       = (*MockCourseRepository)(nil)
	_ repository.WebhookEventRepository = (*MockWebhookEventRepository)(nil)
	_ infra.GatewayClient               = (*MockGatewayClient)(nil)
	_ infra.EventPublisher              = (*MockPublisher)(nil)
)

type MockEnrollmentRepository struct {
	mock.Mock
}

type MockCourseRepository struct {
	mock.Mock
}

type MockWebhookEventRepository struct {
	mock.Mock
}

type MockGatewayClient struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockGatewayClient) KeyID() string {
	args := m.Called()
	return args.String(0)
}

func enrollment(args mock.Arguments) (*domain.Enrollment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enrollment), args.Error(1)
}

func enrollments(args mock.Arguments) ([]domain.Enrollment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) FindByID(ctx context.Context, id uint64) (*domain.Enrollment, error) {
	return enrollment(m.Called(ctx, id))
}

func (m *MockEnrollmentRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID uint64) (*domain.Enrollment, error) {
	return enrollment(m.Called(ctx, courseID, studentID))
}

func (m *MockEnrollmentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Enrollment, error) {
	return enrollment(m.Called(ctx, orderID))
}

func (m *MockEnrollmentRepository) HasOrder(ctx context.Context, enrollmentID uint64, orderID string) (bool, error) {
	args := m.Called(ctx, enrollmentID, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) UpsertOrder(ctx context.Context, attempt domain.OrderAttempt) (*domain.Enrollment, error) {
	return enrollment(m.Called(ctx, attempt))
}

func (m *MockEnrollmentRepository) MarkPaid(ctx context.Context, id uint64, proof domain.PaymentProof) (bool, error) {
	args := m.Called(ctx, id, proof)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) MarkFailed(ctx context.Context, id uint64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) AddCompletedLecture(ctx context.Context, enrollmentID uint64, lectureID string) error {
	args := m.Called(ctx, enrollmentID, lectureID)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) CountCompletedLectures(ctx context.Context, enrollmentID uint64) (int, error) {
	args := m.Called(ctx, enrollmentID)
	return args.Int(0), args.Error(1)
}

func (m *MockEnrollmentRepository) SetProgress(ctx context.Context, enrollmentID uint64, percent int) error {
	args := m.Called(ctx, enrollmentID, percent)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) ListPaidByStudent(ctx context.Context, studentID uint64) ([]domain.Enrollment, error) {
	return enrollments(m.Called(ctx, studentID))
}

func (m *MockEnrollmentRepository) ListPaidByCourses(ctx context.Context, courseIDs []uint64) ([]domain.Enrollment, error) {
	return enrollments(m.Called(ctx, courseIDs))
}

func (m *MockEnrollmentRepository) ListAll(ctx context.Context) ([]domain.Enrollment, error) {
	return enrollments(m.Called(ctx))
}

func (m *MockEnrollmentRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEnrollmentRepository) PaidSummary(ctx context.Context, courseIDs []uint64) (repository.PaidSummary, error) {
	args := m.Called(ctx, courseIDs)
	return args.Get(0).(repository.PaidSummary), args.Error(1)
}

func (m *MockCourseRepository) GetCourse(ctx context.Context, id uint64) (*domain.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func (m *MockCourseRepository) ListByInstructor(ctx context.Context, instructorID uint64) ([]domain.Course, error) {
	args := m.Called(ctx, instructorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Course), args.Error(1)
}

func (m *MockWebhookEventRepository) FindByProviderEventID(ctx context.Context, provider, eventID string) (*domain.WebhookEvent, error) {
	args := m.Called(ctx, provider, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) Record(ctx context.Context, evt *domain.WebhookEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, id uint64, processingErr string) error {
	args := m.Called(ctx, id, processingErr)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
