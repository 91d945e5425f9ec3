package domain

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records a verified gateway delivery so redeliveries of the same
// provider event can be acknowledged without re-processing.
type WebhookEvent struct {
	ID              uint64         `json:"id" gorm:"primaryKey;autoIncrement"`
	Provider        string         `json:"provider" gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string         `json:"providerEventId" gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string         `json:"eventType" gorm:"type:varchar(100);not null;index"`
	OrderID         string         `json:"orderId" gorm:"type:varchar(64);index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:json"`
	ProcessedAt     *time.Time     `json:"processedAt,omitempty"`
	ProcessingError string         `json:"processingError,omitempty" gorm:"type:text"`
	CreatedAt       time.Time      `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (e *WebhookEvent) Processed() bool {
	return e != nil && e.ProcessedAt != nil
}
