package gormrepo

import (
	"context"
	"errors"
	"time"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookEventRepo struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) repository.WebhookEventRepository {
	return &webhookEventRepo{db: db}
}

func (r *webhookEventRepo) FindByProviderEventID(ctx context.Context, provider, eventID string) (*domain.WebhookEvent, error) {
	var evt domain.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		First(&evt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

func (r *webhookEventRepo) Record(ctx context.Context, evt *domain.WebhookEvent) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(evt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	existing, err := r.FindByProviderEventID(ctx, evt.Provider, evt.ProviderEventID)
	if err != nil {
		return err
	}
	if existing == nil {
		return errors.New("webhook event vanished after conflicting insert")
	}
	*evt = *existing
	return nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, id uint64, processingErr string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed_at":     &now,
			"processing_error": processingErr,
		}).Error
}

func (r *webhookEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.WebhookEvent{})
	return res.RowsAffected, res.Error
}
