package services

import (
	"time"

	"enrollment-service/internal/domain"

	"github.com/shopspring/decimal"
)

func CreateMockCourse(id uint64, title string, price string) *domain.Course {
	return &domain.Course{
		ID:           id,
		Title:        title,
		InstructorID: TestTeacherID,
		Price:        decimal.RequireFromString(price),
		ThumbnailURL: "https://cdn.example.com/thumb.png",
	}
}

func CreateMockEnrollment(id, courseID, studentID uint64, orderID string, status domain.EnrollmentStatus) *domain.Enrollment {
	return &domain.Enrollment{
		ID:             id,
		CourseID:       courseID,
		StudentID:      studentID,
		Amount:         decimal.RequireFromString(TestCoursePrice),
		Currency:       domain.DefaultCurrency,
		GatewayOrderID: orderID,
		Status:         status,
		CreatedAt:      time.Now(),
	}
}

const (
	TestCourseID     = uint64(10)
	TestStudentID    = uint64(7)
	TestTeacherID    = uint64(3)
	TestEnrollmentID = uint64(100)
	TestOrderID      = "order_O1"
	TestPaymentID    = "pay_P1"
	TestCoursePrice  = "500"
	TestKeySecret    = "key-secret"
	TestWebhookKey   = "webhook-secret"
	TestKeyID        = "rzp_test_key"
)
