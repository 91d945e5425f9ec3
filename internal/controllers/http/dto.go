package http

type CourseRequest struct {
	CourseID uint64 `json:"courseId"`
}

// VerifyPaymentRequest carries the checkout callback fields.
type VerifyPaymentRequest struct {
	OrderID      string `json:"order_id" binding:"required"`
	PaymentID    string `json:"payment_id" binding:"required"`
	Signature    string `json:"signature" binding:"required"`
	EnrollmentID uint64 `json:"enrollmentId" binding:"required"`
}

type ProgressRequest struct {
	LectureID string `json:"lectureId"`
}

type WebhookResponse struct {
	Status string `json:"status"`
}
