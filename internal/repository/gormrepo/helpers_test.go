package gormrepo

import (
	"fmt"
	"strings"
	"testing"

	"enrollment-service/internal/config"
	"enrollment-service/internal/domain"
	"enrollment-service/internal/infra/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory SQLite database. A single connection
// keeps every query on the same memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, instructorID uint64, price string, lectures ...string) *domain.Course {
	t.Helper()
	c := &domain.Course{
		Title:        "Course " + price,
		InstructorID: instructorID,
		Price:        decimal.RequireFromString(price),
	}
	// Insert in reverse so ordering by position is observable.
	for i := len(lectures) - 1; i >= 0; i-- {
		c.Lectures = append(c.Lectures, domain.Lecture{Title: lectures[i], Position: i})
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func attempt(courseID, studentID uint64, orderID string) domain.OrderAttempt {
	return domain.OrderAttempt{
		CourseID:  courseID,
		StudentID: studentID,
		Amount:    decimal.RequireFromString("500"),
		Currency:  domain.DefaultCurrency,
		Receipt:   "rcpt_" + orderID,
		OrderID:   orderID,
	}
}

func countCourseStudents(t *testing.T, db *gorm.DB, courseID, studentID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.CourseStudent{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&n).Error)
	return n
}
