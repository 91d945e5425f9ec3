package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type enrollmentRepo struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) repository.EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

var courseStudentConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
	DoNothing: true,
}

func (r *enrollmentRepo) FindByID(ctx context.Context, id uint64) (*domain.Enrollment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *enrollmentRepo) FindByCourseAndStudent(ctx context.Context, courseID, studentID uint64) (*domain.Enrollment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("course_id = ? AND student_id = ?", courseID, studentID))
}

func (r *enrollmentRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Enrollment, error) {
	if orderID == "" {
		return nil, nil
	}
	e, err := r.findOne(r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID))
	if e != nil || err != nil {
		return e, err
	}

	var issued domain.EnrollmentOrder
	err = r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&issued).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, issued.EnrollmentID)
}

func (r *enrollmentRepo) HasOrder(ctx context.Context, enrollmentID uint64, orderID string) (bool, error) {
	if orderID == "" {
		return false, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.EnrollmentOrder{}).
		Where("enrollment_id = ? AND order_id = ?", enrollmentID, orderID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("lookup order %s: %w", orderID, err)
	}
	return n > 0, nil
}

func (r *enrollmentRepo) findOne(q *gorm.DB) (*domain.Enrollment, error) {
	var e domain.Enrollment
	if err := q.Preload("CompletedLectures").First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) UpsertOrder(ctx context.Context, a domain.OrderAttempt) (*domain.Enrollment, error) {
	var out *domain.Enrollment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e := domain.Enrollment{
			CourseID:       a.CourseID,
			StudentID:      a.StudentID,
			Amount:         a.Amount,
			Currency:       a.Currency,
			Receipt:        a.Receipt,
			GatewayOrderID: a.OrderID,
			Status:         domain.StatusCreated,
		}
		res := tx.Clauses(courseStudentConflict).Create(&e)
		if res.Error != nil {
			return fmt.Errorf("insert enrollment: %w", res.Error)
		}

		// The row already existed: reuse it, but never move it away from paid.
		if res.RowsAffected == 0 {
			err := tx.Model(&domain.Enrollment{}).
				Where("course_id = ? AND student_id = ? AND status <> ?", a.CourseID, a.StudentID, domain.StatusPaid).
				Updates(map[string]any{
					"amount":           a.Amount,
					"currency":         a.Currency,
					"receipt":          a.Receipt,
					"gateway_order_id": a.OrderID,
					"status":           domain.StatusCreated,
				}).Error
			if err != nil {
				return fmt.Errorf("update enrollment: %w", err)
			}
		}

		found, err := (&enrollmentRepo{db: tx}).FindByCourseAndStudent(ctx, a.CourseID, a.StudentID)
		if err != nil {
			return err
		}
		if found == nil {
			return errors.New("enrollment vanished after upsert")
		}
		out = found
		if found.IsPaid() || a.OrderID == "" {
			return nil
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).Create(&domain.EnrollmentOrder{
			EnrollmentID: found.ID,
			OrderID:      a.OrderID,
			Receipt:      a.Receipt,
			Amount:       a.Amount,
		}).Error
		if err != nil {
			return fmt.Errorf("record order %s: %w", a.OrderID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) MarkPaid(ctx context.Context, id uint64, proof domain.PaymentProof) (bool, error) {
	var won bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": domain.StatusPaid}
		if proof.OrderID != "" {
			updates["gateway_order_id"] = proof.OrderID
		}
		if proof.PaymentID != "" {
			updates["gateway_payment_id"] = proof.PaymentID
		}
		if proof.Signature != "" {
			updates["gateway_signature"] = proof.Signature
		}

		res := tx.Model(&domain.Enrollment{}).
			Where("id = ? AND status <> ?", id, domain.StatusPaid).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		var e domain.Enrollment
		if err := tx.Select("id", "course_id", "student_id").First(&e, id).Error; err != nil {
			return err
		}
		return tx.Clauses(courseStudentConflict).
			Create(&domain.CourseStudent{CourseID: e.CourseID, StudentID: e.StudentID}).Error
	})
	if err != nil {
		return false, fmt.Errorf("mark enrollment %d paid: %w", id, err)
	}
	return won, nil
}

func (r *enrollmentRepo) MarkFailed(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Enrollment{}).
		Where("id = ? AND status <> ?", id, domain.StatusPaid).
		Update("status", domain.StatusFailed)
	if res.Error != nil {
		return false, fmt.Errorf("mark enrollment %d failed: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) AddCompletedLecture(ctx context.Context, enrollmentID uint64, lectureID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.CompletedLecture{EnrollmentID: enrollmentID, LectureID: lectureID}).Error
}

func (r *enrollmentRepo) CountCompletedLectures(ctx context.Context, enrollmentID uint64) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.CompletedLecture{}).
		Where("enrollment_id = ?", enrollmentID).
		Count(&n).Error
	return int(n), err
}

func (r *enrollmentRepo) SetProgress(ctx context.Context, enrollmentID uint64, percent int) error {
	return r.db.WithContext(ctx).Model(&domain.Enrollment{}).
		Where("id = ?", enrollmentID).
		Update("progress_percent", percent).Error
}

func (r *enrollmentRepo) withCourse(q *gorm.DB) *gorm.DB {
	return q.Preload("Course").
		Preload("Course.Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Order("created_at DESC, id DESC")
}

func (r *enrollmentRepo) ListPaidByStudent(ctx context.Context, studentID uint64) ([]domain.Enrollment, error) {
	var out []domain.Enrollment
	err := r.withCourse(r.db.WithContext(ctx)).
		Preload("CompletedLectures").
		Where("student_id = ? AND status = ?", studentID, domain.StatusPaid).
		Find(&out).Error
	return out, err
}

func (r *enrollmentRepo) ListPaidByCourses(ctx context.Context, courseIDs []uint64) ([]domain.Enrollment, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var out []domain.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("course_id IN ? AND status = ?", courseIDs, domain.StatusPaid).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *enrollmentRepo) ListAll(ctx context.Context) ([]domain.Enrollment, error) {
	var out []domain.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *enrollmentRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Enrollment{}).Count(&n).Error
	return n, err
}

func (r *enrollmentRepo) PaidSummary(ctx context.Context, courseIDs []uint64) (repository.PaidSummary, error) {
	var out repository.PaidSummary
	if courseIDs != nil && len(courseIDs) == 0 {
		out.Total = decimal.Zero
		return out, nil
	}

	q := r.db.WithContext(ctx).Model(&domain.Enrollment{}).Where("status = ?", domain.StatusPaid)
	if courseIDs != nil {
		q = q.Where("course_id IN ?", courseIDs)
	}

	var total decimal.NullDecimal
	row := q.Select("COUNT(*), COUNT(DISTINCT student_id), SUM(amount)").Row()
	if err := row.Scan(&out.Enrollments, &out.DistinctStudents, &total); err != nil {
		return out, fmt.Errorf("paid summary: %w", err)
	}
	out.Total = decimal.Zero
	if total.Valid {
		out.Total = total.Decimal
	}
	return out, nil
}
