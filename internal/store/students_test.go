// internal/store/students_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/models"
)

var studentColumns = []string{"id", "skills", "interests", "preferred_work_mode"}

func newStudentFixture(t *testing.T) (*StudentStore, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	store := NewStudentStore(db, cache, 10*time.Minute, logger.NewTestLogger(t))
	return store, mock, mr
}

func TestStudentStore_ListStudents(t *testing.T) {
	store, mock, _ := newStudentFixture(t)

	rows := sqlmock.NewRows(studentColumns).
		AddRow(1, "{1,2,3}", "{10}", "DEVELOPMENT").
		AddRow(2, "{}", "{}", "")
	mock.ExpectQuery(`FROM students s`).WillReturnRows(rows)

	students, err := store.ListStudents(context.Background())
	require.NoError(t, err)

	require.Len(t, students, 2)
	assert.Equal(t, int64(1), students[0].ID)
	assert.Equal(t, []int64{1, 2, 3}, students[0].Skills)
	assert.Equal(t, []int64{10}, students[0].Interests)
	assert.Equal(t, models.WorkModeDevelopment, students[0].PreferredWorkMode)
	assert.False(t, students[1].PreferredWorkMode.IsSet())
	assert.Empty(t, students[1].Skills)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentStore_GetStudent_Found(t *testing.T) {
	store, mock, _ := newStudentFixture(t)

	rows := sqlmock.NewRows(studentColumns).
		AddRow(7, "{4,5}", "{6}", "RESEARCH")
	mock.ExpectQuery(`FROM students s`).WithArgs(int64(7)).WillReturnRows(rows)

	student, err := store.GetStudent(context.Background(), 7)
	require.NoError(t, err)

	require.NotNil(t, student)
	assert.Equal(t, int64(7), student.ID)
	assert.Equal(t, []int64{4, 5}, student.Skills)
	assert.Equal(t, models.WorkModeResearch, student.PreferredWorkMode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentStore_GetStudent_Missing(t *testing.T) {
	store, mock, _ := newStudentFixture(t)

	mock.ExpectQuery(`FROM students s`).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(studentColumns))

	student, err := store.GetStudent(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, student)
}

func TestStudentStore_GetStudent_SecondReadServedFromCache(t *testing.T) {
	store, mock, _ := newStudentFixture(t)

	// One query expectation only: the repeat lookup must not reach Postgres.
	rows := sqlmock.NewRows(studentColumns).
		AddRow(7, "{4,5}", "{6}", "RESEARCH")
	mock.ExpectQuery(`FROM students s`).WithArgs(int64(7)).WillReturnRows(rows)

	first, err := store.GetStudent(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := store.GetStudent(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentStore_GetStudent_CacheEntryExpires(t *testing.T) {
	store, mock, mr := newStudentFixture(t)

	rows := sqlmock.NewRows(studentColumns).
		AddRow(7, "{4}", "{}", "")
	mock.ExpectQuery(`FROM students s`).WithArgs(int64(7)).WillReturnRows(rows)

	_, err := store.GetStudent(context.Background(), 7)
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)

	rows = sqlmock.NewRows(studentColumns).
		AddRow(7, "{4}", "{}", "")
	mock.ExpectQuery(`FROM students s`).WithArgs(int64(7)).WillReturnRows(rows)

	_, err = store.GetStudent(context.Background(), 7)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentStore_InvalidateStudent(t *testing.T) {
	store, mock, mr := newStudentFixture(t)

	rows := sqlmock.NewRows(studentColumns).
		AddRow(7, "{4}", "{}", "")
	mock.ExpectQuery(`FROM students s`).WithArgs(int64(7)).WillReturnRows(rows)

	_, err := store.GetStudent(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, mr.Exists("student:profile:7"))

	require.NoError(t, store.InvalidateStudent(context.Background(), 7))
	assert.False(t, mr.Exists("student:profile:7"))
}

func TestStudentStore_CorruptCacheEntryFallsBackToQuery(t *testing.T) {
	store, mock, mr := newStudentFixture(t)

	require.NoError(t, mr.Set("student:profile:7", "not json"))

	rows := sqlmock.NewRows(studentColumns).
		AddRow(7, "{4}", "{}", "")
	mock.ExpectQuery(`FROM students s`).WithArgs(int64(7)).WillReturnRows(rows)

	student, err := store.GetStudent(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, int64(7), student.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentStore_WorksWithoutCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStudentStore(db, nil, 0, logger.NewTestLogger(t))

	rows := sqlmock.NewRows(studentColumns).
		AddRow(7, "{4}", "{}", "")
	mock.ExpectQuery(`FROM students s`).WithArgs(int64(7)).WillReturnRows(rows)

	student, err := store.GetStudent(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, student)
}
