// internal/store/students.go

// Package store implements the Postgres-backed sources and sinks the matching
// engine runs against. Profile reads go through a Redis cache; result writes
// go straight to Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/models"
)

const studentProfileKey = "student:profile:"

// StudentStore reads student profile snapshots. Single-profile lookups are
// cache-aside over Redis; the full listing always hits Postgres because runs
// over all students want a consistent snapshot, not a partially stale one.
type StudentStore struct {
	db     *sql.DB
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewStudentStore(db *sql.DB, cache *redis.Client, ttl time.Duration, log logger.Logger) *StudentStore {
	return &StudentStore{db: db, cache: cache, ttl: ttl, logger: log}
}

const listStudentsQuery = `
	SELECT s.id,
	       COALESCE(array_agg(DISTINCT ss.skill_id) FILTER (WHERE ss.skill_id IS NOT NULL), '{}'),
	       COALESCE(array_agg(DISTINCT si.interest_id) FILTER (WHERE si.interest_id IS NOT NULL), '{}'),
	       COALESCE(s.preferred_work_mode, '')
	FROM students s
	LEFT JOIN student_skills ss ON ss.student_id = s.id
	LEFT JOIN student_interests si ON si.student_id = s.id
	WHERE s.active = TRUE
	GROUP BY s.id, s.preferred_work_mode
	ORDER BY s.id`

func (s *StudentStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	rows, err := s.db.QueryContext(ctx, listStudentsQuery)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to list students", true, err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var st models.Student
		var mode string
		if err := rows.Scan(&st.ID, pq.Array(&st.Skills), pq.Array(&st.Interests), &mode); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to scan student row", true, err)
		}
		st.PreferredWorkMode = models.WorkMode(mode)
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "student listing aborted", true, err)
	}
	return students, nil
}

const getStudentQuery = `
	SELECT s.id,
	       COALESCE(array_agg(DISTINCT ss.skill_id) FILTER (WHERE ss.skill_id IS NOT NULL), '{}'),
	       COALESCE(array_agg(DISTINCT si.interest_id) FILTER (WHERE si.interest_id IS NOT NULL), '{}'),
	       COALESCE(s.preferred_work_mode, '')
	FROM students s
	LEFT JOIN student_skills ss ON ss.student_id = s.id
	LEFT JOIN student_interests si ON si.student_id = s.id
	WHERE s.id = $1 AND s.active = TRUE
	GROUP BY s.id, s.preferred_work_mode`

// GetStudent returns (nil, nil) when the student does not exist or is
// inactive.
func (s *StudentStore) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	if cached := s.fromCache(ctx, id); cached != nil {
		return cached, nil
	}

	var st models.Student
	var mode string
	err := s.db.QueryRowContext(ctx, getStudentQuery, id).
		Scan(&st.ID, pq.Array(&st.Skills), pq.Array(&st.Interests), &mode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to load student", true, err)
	}
	st.PreferredWorkMode = models.WorkMode(mode)

	s.toCache(ctx, &st)
	return &st, nil
}

// EmailForStudent resolves the contact address used by notification workers.
// Returns empty without error when the student has no address on file.
func (s *StudentStore) EmailForStudent(ctx context.Context, id int64) (string, error) {
	var email sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT email FROM students WHERE id = $1`, id).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to load student email", true, err)
	}
	return email.String, nil
}

// InvalidateStudent drops the cached profile, typically after an upstream
// profile change event.
func (s *StudentStore) InvalidateStudent(ctx context.Context, id int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey(id)).Err()
}

func (s *StudentStore) fromCache(ctx context.Context, id int64) *models.Student {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("student cache read failed", map[string]interface{}{
				"studentId": id,
				"error":     err.Error(),
			})
		}
		return nil
	}
	var st models.Student
	if err := json.Unmarshal(payload, &st); err != nil {
		s.logger.Warn("student cache entry corrupt, dropping", map[string]interface{}{
			"studentId": id,
		})
		s.cache.Del(ctx, cacheKey(id))
		return nil
	}
	return &st
}

// toCache is best effort; a write failure only costs the next read a query.
func (s *StudentStore) toCache(ctx context.Context, st *models.Student) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(st.ID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn("student cache write failed", map[string]interface{}{
			"studentId": st.ID,
			"error":     err.Error(),
		})
	}
}

func cacheKey(id int64) string {
	return studentProfileKey + strconv.FormatInt(id, 10)
}
