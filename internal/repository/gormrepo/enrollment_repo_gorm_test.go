package gormrepo

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"enrollment-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepo_UpsertOrderKeepsOneRowPerPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500")

	first, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, first.Status)

	_, err = repo.MarkFailed(ctx, first.ID)
	require.NoError(t, err)

	second, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_2"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "order_2", second.GatewayOrderID)
	assert.Equal(t, domain.StatusCreated, second.Status)

	var n int64
	require.NoError(t, db.Model(&domain.Enrollment{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestEnrollmentRepo_UpsertOrderNeverResetsPaid(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500")

	e, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)
	won, err := repo.MarkPaid(ctx, e.ID, domain.PaymentProof{PaymentID: "pay_1", Signature: "sig"})
	require.NoError(t, err)
	require.True(t, won)

	again, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_2"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, again.Status)
	assert.Equal(t, "order_1", again.GatewayOrderID)
	assert.Equal(t, "pay_1", again.GatewayPaymentID)
}

func TestEnrollmentRepo_MarkPaidIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500")

	e, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)

	won, err := repo.MarkPaid(ctx, e.ID, domain.PaymentProof{PaymentID: "pay_1", Signature: "sig_1"})
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkPaid(ctx, e.ID, domain.PaymentProof{PaymentID: "pay_2", Signature: "sig_2"})
	require.NoError(t, err)
	assert.False(t, won)

	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.Equal(t, "pay_1", got.GatewayPaymentID)
	assert.Equal(t, int64(1), countCourseStudents(t, db, course.ID, 7))
}

func TestEnrollmentRepo_MarkPaidConcurrentConfirmations(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500")

	e, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.MarkPaid(ctx, e.ID, domain.PaymentProof{PaymentID: "pay_1"})
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int64(1), countCourseStudents(t, db, course.ID, 7))
}

func TestEnrollmentRepo_MarkFailedNeverDowngradesPaid(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500")

	e, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)

	changed, err := repo.MarkFailed(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.MarkPaid(ctx, e.ID, domain.PaymentProof{})
	require.NoError(t, err)

	changed, err = repo.MarkFailed(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
}

func TestEnrollmentRepo_OrderHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500")

	first, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)
	second, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_2"))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	assert.Equal(t, "order_2", second.GatewayOrderID)

	for _, orderID := range []string{"order_1", "order_2"} {
		ok, err := repo.HasOrder(ctx, first.ID, orderID)
		require.NoError(t, err)
		assert.True(t, ok, orderID)
	}
	ok, err := repo.HasOrder(ctx, first.ID, "order_3")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.HasOrder(ctx, first.ID+1, "order_1")
	require.NoError(t, err)
	assert.False(t, ok)

	superseded, err := repo.FindByOrderID(ctx, "order_1")
	require.NoError(t, err)
	require.NotNil(t, superseded)
	assert.Equal(t, first.ID, superseded.ID)

	won, err := repo.MarkPaid(ctx, first.ID, domain.PaymentProof{OrderID: "order_1", PaymentID: "pay_1"})
	require.NoError(t, err)
	require.True(t, won)

	paid, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_1", paid.GatewayOrderID)
	assert.Equal(t, "pay_1", paid.GatewayPaymentID)

	// Orders are not recorded against a paid row.
	_, err = repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_4"))
	require.NoError(t, err)
	ok, err = repo.HasOrder(ctx, first.ID, "order_4")
	require.NoError(t, err)
	assert.False(t, ok)

	var n int64
	require.NoError(t, db.Model(&domain.EnrollmentOrder{}).Where("enrollment_id = ?", first.ID).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestEnrollmentRepo_Lookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500")

	e, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)

	byOrder, err := repo.FindByOrderID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, e.ID, byOrder.ID)

	missing, err := repo.FindByOrderID(ctx, "order_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := repo.FindByOrderID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, empty)

	none, err := repo.FindByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEnrollmentRepo_CompletedLectures(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 1, "500", "a", "b")

	e, err := repo.UpsertOrder(ctx, attempt(course.ID, 7, "order_1"))
	require.NoError(t, err)

	require.NoError(t, repo.AddCompletedLecture(ctx, e.ID, "1"))
	require.NoError(t, repo.AddCompletedLecture(ctx, e.ID, "1"))
	require.NoError(t, repo.AddCompletedLecture(ctx, e.ID, "2"))

	n, err := repo.CountCompletedLectures(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.SetProgress(ctx, e.ID, 100))
	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.ProgressPercent)
	assert.ElementsMatch(t, []string{"1", "2"}, got.LectureIDs())
}

func TestEnrollmentRepo_Listings(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	older := seedCourse(t, db, 1, "500", "intro", "outro")
	newer := seedCourse(t, db, 1, "250")
	other := seedCourse(t, db, 2, "100")

	pay := func(courseID, studentID uint64, orderID string) {
		e, err := repo.UpsertOrder(ctx, attempt(courseID, studentID, orderID))
		require.NoError(t, err)
		_, err = repo.MarkPaid(ctx, e.ID, domain.PaymentProof{})
		require.NoError(t, err)
	}
	pay(older.ID, 7, "o1")
	require.NoError(t, db.Model(&domain.Enrollment{}).Where("course_id = ?", older.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)
	pay(newer.ID, 7, "o2")
	pay(other.ID, 8, "o3")
	_, err := repo.UpsertOrder(ctx, attempt(other.ID, 7, "o4"))
	require.NoError(t, err)

	mine, err := repo.ListPaidByStudent(ctx, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].CourseID)
	assert.Equal(t, older.ID, mine[1].CourseID)
	require.NotNil(t, mine[1].Course)
	require.Len(t, mine[1].Course.Lectures, 2)
	assert.Equal(t, "intro", mine[1].Course.Lectures[0].Title)

	byCourses, err := repo.ListPaidByCourses(ctx, []uint64{older.ID, newer.ID})
	require.NoError(t, err)
	assert.Len(t, byCourses, 2)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	count, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	summary, err := repo.PaidSummary(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Enrollments)
	assert.Equal(t, int64(2), summary.DistinctStudents)
	assert.True(t, summary.Total.Equal(decimal.RequireFromString("1500")), summary.Total.String())

	teacher, err := repo.PaidSummary(ctx, []uint64{older.ID, newer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), teacher.Enrollments)
	assert.Equal(t, int64(1), teacher.DistinctStudents)

	none, err := repo.PaidSummary(ctx, []uint64{})
	require.NoError(t, err)
	assert.Zero(t, none.Enrollments)
	assert.True(t, none.Total.IsZero())
}
