package services

import (
	"math"

	"enrollment-service/internal/domain"
)

// TotalLectures is the number of lectures progress is measured against.
//
// Legacy single-video courses have no structured lectures, only a top-level
// video; they count as one lecture, so marking any lecture id completes them.
func TotalLectures(course *domain.Course) int {
	if course == nil {
		return 0
	}
	if n := len(course.Lectures); n > 0 {
		return n
	}
	if isLegacySingleVideo(course) {
		return 1
	}
	return 0
}

func isLegacySingleVideo(course *domain.Course) bool {
	return len(course.Lectures) == 0 && course.VideoURL != ""
}

// ProgressPercent is round(100 * completed / total), capped at 100. Completed
// ids that no longer match a lecture still count, so the cap matters when
// lectures are removed from a course.
func ProgressPercent(course *domain.Course, completed int) int {
	total := TotalLectures(course)
	if total == 0 || completed <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
