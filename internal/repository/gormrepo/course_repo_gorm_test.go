package gormrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRepo_GetCourse(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()
	course := seedCourse(t, db, 3, "499.99", "first", "second", "third")

	got, err := repo.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, got.Lectures, 3)
	assert.Equal(t, "first", got.Lectures[0].Title)
	assert.Equal(t, "third", got.Lectures[2].Title)
	assert.Equal(t, int64(49999), got.MinorUnits())

	missing, err := repo.GetCourse(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCourseRepo_ListByInstructor(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db)
	a := seedCourse(t, db, 3, "10")
	b := seedCourse(t, db, 3, "20")
	seedCourse(t, db, 4, "30")

	got, err := repo.ListByInstructor(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)
}
