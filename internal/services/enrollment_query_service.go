package services

import (
	"context"
	"fmt"
	"strconv"

	"enrollment-service/internal/domain"
	"enrollment-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Revenue split between the instructor and the platform.
var (
	TeacherShare  = decimal.RequireFromString("0.90")
	PlatformShare = decimal.RequireFromString("0.10")
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Requester identifies the caller of a scoped query.
type Requester struct {
	ID   uint64
	Role Role
}

type ProgressResult struct {
	ProgressPercent   int      `json:"progressPercent"`
	CompletedLectures []string `json:"completedLectures"`
}

type TeacherStats struct {
	TotalCourses     int             `json:"totalCourses"`
	StudentsEnrolled int64           `json:"studentsEnrolled"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
}

type PlatformStats struct {
	Enrollments     int64           `json:"enrollments"`
	PaidEnrollments int64           `json:"paidEnrollments"`
	Revenue         decimal.Decimal `json:"revenue"`
}

type EnrollmentQueryService struct {
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	cache       *EnrollmentCache
	group       singleflight.Group
	logger      *zap.Logger
}

func NewEnrollmentQueryService(e repository.EnrollmentRepository, c repository.CourseRepository, cache *EnrollmentCache, logger *zap.Logger) *EnrollmentQueryService {
	return &EnrollmentQueryService{
		enrollments: e,
		courses:     c,
		cache:       cache,
		logger:      logger,
	}
}

// ListMyEnrollments returns the student's paid enrollments with their courses,
// newest first. Concurrent cache misses for one student share a single query.
func (q *EnrollmentQueryService) ListMyEnrollments(ctx context.Context, studentID uint64) ([]domain.Enrollment, error) {
	if list, ok := q.cache.Get(ctx, studentID); ok {
		return list, nil
	}

	// Shared by every waiter, so one caller's cancellation must not fail the rest.
	shared := context.WithoutCancel(ctx)
	ch := q.group.DoChan(strconv.FormatUint(studentID, 10), func() (any, error) {
		epoch := q.cache.Epoch()
		list, err := q.enrollments.ListPaidByStudent(shared, studentID)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []domain.Enrollment{}
		}
		q.cache.SetIfUnchanged(shared, studentID, epoch, list)
		return list, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, fmt.Errorf("list enrollments: %w", res.Err)
	}
	return res.Val.([]domain.Enrollment), nil
}

// UpdateProgress marks lectureID completed on the student's paid enrollment
// and recomputes the cached percentage. An empty lectureID only recomputes.
func (q *EnrollmentQueryService) UpdateProgress(ctx context.Context, courseID, studentID uint64, lectureID string) (_ *ProgressResult, err error) {
	ctx, span := tracer.Start(ctx, "EnrollmentQueryService.UpdateProgress", trace.WithAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("student.id", int64(studentID)),
	))
	defer func() { endSpan(span, err) }()

	if courseID == 0 {
		return nil, domain.ErrInvalidCourse
	}

	enrollment, err := q.enrollments.FindByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if !enrollment.IsPaid() {
		return nil, domain.ErrEnrollmentNotFound
	}

	if lectureID != "" {
		if err := q.enrollments.AddCompletedLecture(ctx, enrollment.ID, lectureID); err != nil {
			return nil, fmt.Errorf("add completed lecture: %w", err)
		}
	}

	course, err := q.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, domain.ErrCourseNotFound
	}

	completed, err := q.enrollments.CountCompletedLectures(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("count completed lectures: %w", err)
	}
	percent := ProgressPercent(course, completed)
	if err := q.enrollments.SetProgress(ctx, enrollment.ID, percent); err != nil {
		return nil, fmt.Errorf("store progress: %w", err)
	}
	q.cache.Invalidate(ctx, studentID)

	updated, err := q.enrollments.FindByID(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("reload enrollment: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrEnrollmentNotFound
	}

	return &ProgressResult{
		ProgressPercent:   percent,
		CompletedLectures: updated.LectureIDs(),
	}, nil
}

// ListCourseTransactions lists every enrollment regardless of status.
func (q *EnrollmentQueryService) ListCourseTransactions(ctx context.Context) ([]domain.Enrollment, error) {
	list, err := q.enrollments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return list, nil
}

// ListCourseStudents lists a course's paid enrollments. Teachers only see
// their own courses.
func (q *EnrollmentQueryService) ListCourseStudents(ctx context.Context, courseID uint64, who Requester) ([]domain.Enrollment, error) {
	if courseID == 0 {
		return nil, domain.ErrInvalidCourse
	}
	course, err := q.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, domain.ErrCourseNotFound
	}
	if who.Role != RoleAdmin && course.InstructorID != who.ID {
		return nil, domain.ErrNotAuthorized
	}

	list, err := q.enrollments.ListPaidByCourses(ctx, []uint64{courseID})
	if err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return list, nil
}

func (q *EnrollmentQueryService) teacherCourseIDs(ctx context.Context, teacherID uint64) ([]uint64, error) {
	courses, err := q.courses.ListByInstructor(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list teacher courses: %w", err)
	}
	ids := make([]uint64, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// TeacherEnrollments lists paid enrollments across the teacher's courses.
func (q *EnrollmentQueryService) TeacherEnrollments(ctx context.Context, teacherID uint64) ([]domain.Enrollment, error) {
	ids, err := q.teacherCourseIDs(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Enrollment{}, nil
	}
	list, err := q.enrollments.ListPaidByCourses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list teacher enrollments: %w", err)
	}
	return list, nil
}

func (q *EnrollmentQueryService) TeacherStats(ctx context.Context, teacherID uint64) (*TeacherStats, error) {
	ids, err := q.teacherCourseIDs(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	summary, err := q.enrollments.PaidSummary(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &TeacherStats{
		TotalCourses:     len(ids),
		StudentsEnrolled: summary.DistinctStudents,
		TotalRevenue:     summary.Total.Mul(TeacherShare).Round(2),
	}, nil
}

func (q *EnrollmentQueryService) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	all, err := q.enrollments.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	summary, err := q.enrollments.PaidSummary(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &PlatformStats{
		Enrollments:     all,
		PaidEnrollments: summary.Enrollments,
		Revenue:         summary.Total.Mul(PlatformShare).Round(2),
	}, nil
}
