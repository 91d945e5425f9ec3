package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventEnrollmentPaid = "enrollment.paid"

// PaymentSource names the trigger that moved an enrollment to paid.
type PaymentSource string

const (
	SourceVerify  PaymentSource = "verify"
	SourceWebhook PaymentSource = "webhook"
	SourceFree    PaymentSource = "free"
	SourceSandbox PaymentSource = "sandbox"
)

type EnrollmentPaidEvent struct {
	EnrollmentID uint64          `json:"enrollmentId"`
	CourseID     uint64          `json:"courseId"`
	StudentID    uint64          `json:"studentId"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Source       PaymentSource   `json:"source"`
	PaidAt       time.Time       `json:"paidAt"`
}
