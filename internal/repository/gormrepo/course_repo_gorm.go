package gormrepo

import (
	"context"
	"errors"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/repository"

	"gorm.io/gorm"
)

type courseRepo struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) repository.CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) GetCourse(ctx context.Context, id uint64) (*domain.Course, error) {
	var c domain.Course
	err := r.db.WithContext(ctx).
		Preload("Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&c, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) ListByInstructor(ctx context.Context, instructorID uint64) ([]domain.Course, error) {
	var out []domain.Course
	err := r.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
