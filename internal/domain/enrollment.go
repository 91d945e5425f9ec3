package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EnrollmentStatus string

const (
	StatusCreated EnrollmentStatus = "created"
	StatusPaid    EnrollmentStatus = "paid"
	StatusFailed  EnrollmentStatus = "failed"
)

const DefaultCurrency = "INR"

// Enrollment is one student's relationship to one course. There is at most one
// row per (course_id, student_id); re-purchase attempts update that row.
type Enrollment struct {
	ID                uint64             `json:"id" gorm:"primaryKey;autoIncrement"`
	CourseID          uint64             `json:"courseId" gorm:"not null;uniqueIndex:ux_enrollments_course_student,priority:1"`
	StudentID         uint64             `json:"studentId" gorm:"not null;uniqueIndex:ux_enrollments_course_student,priority:2;index"`
	Amount            decimal.Decimal    `json:"amount" gorm:"type:decimal(12,2);not null;default:0"`
	Currency          string             `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	Receipt           string             `json:"receipt,omitempty" gorm:"type:varchar(64)"`
	GatewayOrderID    string             `json:"gatewayOrderId,omitempty" gorm:"type:varchar(64);index"`
	GatewayPaymentID  string             `json:"gatewayPaymentId,omitempty" gorm:"type:varchar(64)"`
	GatewaySignature  string             `json:"-" gorm:"type:varchar(128)"`
	Status            EnrollmentStatus   `json:"status" gorm:"type:varchar(16);not null;default:'created';index"`
	ProgressPercent   int                `json:"progressPercent" gorm:"not null;default:0"`
	CompletedLectures []CompletedLecture `json:"completedLectures,omitempty" gorm:"foreignKey:EnrollmentID"`
	Course            *Course            `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	CreatedAt         time.Time          `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt         time.Time          `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (e *Enrollment) IsPaid() bool {
	return e != nil && e.Status == StatusPaid
}

// LectureIDs returns the completed lecture ids in insertion order.
func (e *Enrollment) LectureIDs() []string {
	ids := make([]string, 0, len(e.CompletedLectures))
	for _, l := range e.CompletedLectures {
		ids = append(ids, l.LectureID)
	}
	return ids
}

// CompletedLecture is one member of an enrollment's completed-lecture set.
type CompletedLecture struct {
	EnrollmentID uint64    `json:"-" gorm:"primaryKey;autoIncrement:false"`
	LectureID    string    `json:"lectureId" gorm:"primaryKey;type:varchar(64)"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// PaymentProof carries the gateway references stored on a paid transition.
// A non-empty OrderID replaces the order stamped on the enrollment, so the row
// names the order that was actually paid.
type PaymentProof struct {
	OrderID   string
	PaymentID string
	Signature string
}

// EnrollmentOrder records every gateway order issued against an enrollment.
// A student who checks out twice may still pay the earlier order.
type EnrollmentOrder struct {
	ID           uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	EnrollmentID uint64          `json:"enrollmentId" gorm:"not null;index"`
	OrderID      string          `json:"orderId" gorm:"type:varchar(64);not null;uniqueIndex:ux_enrollment_orders_order"`
	Receipt      string          `json:"receipt" gorm:"type:varchar(64)"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"autoCreateTime"`
}

// OrderAttempt is the data written when a new gateway order is reserved
// against an enrollment.
type OrderAttempt struct {
	CourseID  uint64
	StudentID uint64
	Amount    decimal.Decimal
	Currency  string
	Receipt   string
	OrderID   string
}
