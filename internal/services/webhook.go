package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Order notes written at order creation. The gateway copies them onto the
// payment, which lets a webhook find its enrollment after a newer order
// replaced the order reference on the row.
const (
	noteCourseID  = "courseId"
	noteStudentID = "studentId"
)

const (
	WebhookProcessed   = "processed"
	WebhookAlreadyPaid = "already_paid"
	WebhookIgnored     = "ignored"
	WebhookDuplicate   = "duplicate"
)

type WebhookResult struct {
	Status       string `json:"status"`
	EventID      string `json:"eventId,omitempty"`
	EnrollmentID uint64 `json:"enrollmentId,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type webhookEntity struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Notes   json.RawMessage `json:"notes"`
}

type webhookPayload struct {
	Entity  string `json:"entity"`
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (p *webhookPayload) payment() *webhookEntity {
	if p.Payload.Payment == nil {
		return nil
	}
	return &p.Payload.Payment.Entity
}

func (p *webhookPayload) order() *webhookEntity {
	if p.Payload.Order == nil {
		return nil
	}
	return &p.Payload.Order.Entity
}

func (p *webhookPayload) orderID() string {
	if pay := p.payment(); pay != nil && pay.OrderID != "" {
		return pay.OrderID
	}
	if o := p.order(); o != nil {
		return o.ID
	}
	return ""
}

func (p *webhookPayload) paymentID() string {
	if pay := p.payment(); pay != nil {
		return pay.ID
	}
	return ""
}

// captured uses the payment status when present and the event name otherwise.
func (p *webhookPayload) captured() bool {
	status := p.Event
	if pay := p.payment(); pay != nil && pay.Status != "" {
		status = pay.Status
	}
	return status == "captured" || status == "payment.captured" || status == "order.paid"
}

// noteID reads a numeric id from entity notes. The gateway sends notes as an
// object of strings, or as an empty array when there are none.
func (e *webhookEntity) noteID(key string) uint64 {
	if e == nil || len(e.Notes) == 0 {
		return 0
	}
	var notes map[string]any
	if err := json.Unmarshal(e.Notes, &notes); err != nil {
		return 0
	}
	switch v := notes[key].(type) {
	case string:
		id, _ := strconv.ParseUint(v, 10, 64)
		return id
	case float64:
		if v > 0 {
			return uint64(v)
		}
	}
	return 0
}

// HandleWebhook ingests one gateway delivery. Only signature problems and
// storage failures are errors; everything else is acknowledged so the
// gateway stops redelivering.
func (s *ReconciliationService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (_ *WebhookResult, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.HandleWebhook")
	defer func() { endSpan(span, err) }()

	if err := s.signer.VerifyWebhook(body, signature); err != nil {
		metrics.RecordWebhook("rejected")
		s.logger.Warn("Webhook rejected", zap.Error(err))
		return nil, err
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordWebhook(WebhookIgnored)
		s.logger.Warn("Webhook body is not JSON, ignoring", zap.Error(err))
		return &WebhookResult{Status: WebhookIgnored, Reason: "malformed payload"}, nil
	}

	// Redeliveries carry the same body, so the fallback id is stable.
	if eventID == "" {
		eventID = uuid.NewSHA1(uuid.NameSpaceURL, body).String()
	}
	orderID := payload.orderID()
	span.SetAttributes(
		attribute.String("webhook.event_id", eventID),
		attribute.String("webhook.event", payload.Event),
		attribute.String("order.id", orderID),
	)
	log := s.logger.With(
		zap.String("event_id", eventID),
		zap.String("event", payload.Event),
		zap.String("order_id", orderID),
		zap.String("source", string(domain.SourceWebhook)),
	)

	evt := &domain.WebhookEvent{
		Provider:        s.provider,
		ProviderEventID: eventID,
		EventType:       payload.Event,
		OrderID:         orderID,
		Payload:         datatypes.JSON(body),
	}
	if s.webhooks != nil {
		if err := s.webhooks.Record(ctx, evt); err != nil {
			return nil, fmt.Errorf("record webhook event: %w", err)
		}
		if evt.Processed() {
			metrics.RecordWebhook(WebhookDuplicate)
			log.Info("Webhook event already processed")
			return &WebhookResult{Status: WebhookDuplicate, EventID: eventID}, nil
		}
	}

	result, err := s.applyWebhook(ctx, &payload)
	if err != nil {
		// Left unprocessed so the gateway's redelivery retries it.
		metrics.RecordWebhook("error")
		log.Error("Webhook processing failed", zap.Error(err))
		return nil, err
	}
	result.EventID = eventID

	if s.webhooks != nil {
		if err := s.webhooks.MarkProcessed(ctx, evt.ID, result.Reason); err != nil {
			log.Warn("Failed to mark webhook event processed", zap.Error(err))
		}
	}

	metrics.RecordWebhook(result.Status)
	log.Info("Webhook handled",
		zap.String("status", result.Status),
		zap.Uint64("enrollment_id", result.EnrollmentID),
		zap.String("reason", result.Reason),
	)
	return result, nil
}

func (s *ReconciliationService) applyWebhook(ctx context.Context, payload *webhookPayload) (*WebhookResult, error) {
	if payload.Entity != "event" {
		return &WebhookResult{Status: WebhookIgnored, Reason: "not an event"}, nil
	}
	if !payload.captured() {
		return &WebhookResult{Status: WebhookIgnored, Reason: "payment not captured"}, nil
	}

	enrollment, err := s.enrollments.FindByOrderID(ctx, payload.orderID())
	if err != nil {
		return nil, fmt.Errorf("load enrollment by order: %w", err)
	}
	if enrollment == nil {
		enrollment, err = s.enrollmentFromNotes(ctx, payload)
		if err != nil {
			return nil, err
		}
	}
	if enrollment == nil {
		return &WebhookResult{Status: WebhookIgnored, Reason: "no enrollment for order"}, nil
	}

	won, err := s.enrollments.MarkPaid(ctx, enrollment.ID, domain.PaymentProof{PaymentID: payload.paymentID()})
	if err != nil {
		return nil, err
	}
	if !won {
		metrics.RecordTransition(string(domain.SourceWebhook), metrics.OutcomeNoop)
		return &WebhookResult{Status: WebhookAlreadyPaid, EnrollmentID: enrollment.ID}, nil
	}
	s.afterPaid(ctx, enrollment, domain.SourceWebhook)
	return &WebhookResult{Status: WebhookProcessed, EnrollmentID: enrollment.ID}, nil
}

func (s *ReconciliationService) enrollmentFromNotes(ctx context.Context, payload *webhookPayload) (*domain.Enrollment, error) {
	for _, entity := range []*webhookEntity{payload.payment(), payload.order()} {
		courseID, studentID := entity.noteID(noteCourseID), entity.noteID(noteStudentID)
		if courseID == 0 || studentID == 0 {
			continue
		}
		e, err := s.enrollments.FindByCourseAndStudent(ctx, courseID, studentID)
		if err != nil {
			return nil, fmt.Errorf("load enrollment by notes: %w", err)
		}
		return e, nil
	}
	return nil, nil
}
