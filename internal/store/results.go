// internal/store/results.go
package store

import (
	"context"
	"database/sql"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/models"
)

// ResultStore persists computed matching results. Records are write-once;
// reruns delete and recreate.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

const insertResultQuery = `
	INSERT INTO matching_results (
		session_id, student_id, project_id,
		global_score, skills_score, interests_score, work_mode_score,
		skills_weight, interests_weight, work_mode_weight,
		threshold_used, above_threshold, recommendation_rank, algorithm_used,
		calculated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())`

// SaveResults writes one batch inside a single transaction so a run's
// per-student output is all-or-nothing.
func (s *ResultStore) SaveResults(ctx context.Context, results []models.MatchingResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeResultPersistFailed, "failed to open transaction", true, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertResultQuery)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeResultPersistFailed, "failed to prepare insert", true, err)
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			r.SessionID, r.StudentID, r.ProjectID,
			r.GlobalScore, r.SkillsScore, r.InterestsScore, r.WorkModeScore,
			r.SkillsWeight, r.InterestsWeight, r.WorkModeWeight,
			r.ThresholdUsed, r.AboveThreshold, r.RecommendationRank, r.AlgorithmUsed,
		)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeResultPersistFailed, "failed to insert matching result", true, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeResultPersistFailed, "failed to commit results", true, err)
	}
	return nil
}

func (s *ResultStore) DeleteByStudent(ctx context.Context, studentID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matching_results WHERE student_id = $1`, studentID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to delete student results", true, err)
	}
	return nil
}

func (s *ResultStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matching_results`)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to delete all results", true, err)
	}
	return nil
}

// DeleteBySession removes one session's records and reports how many went.
func (s *ResultStore) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matching_results WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to delete session results", true, err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

const listBySessionQuery = `
	SELECT id, session_id, student_id, project_id,
	       global_score, skills_score, interests_score, work_mode_score,
	       skills_weight, interests_weight, work_mode_weight,
	       threshold_used, above_threshold, recommendation_rank, algorithm_used,
	       calculated_at
	FROM matching_results
	WHERE session_id = $1
	ORDER BY student_id, recommendation_rank, project_id`

// ListBySession returns every record of one session, ordered per student by
// rank.
func (s *ResultStore) ListBySession(ctx context.Context, sessionID string) ([]models.MatchingResult, error) {
	rows, err := s.db.QueryContext(ctx, listBySessionQuery, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to list session results", true, err)
	}
	defer rows.Close()

	var results []models.MatchingResult
	for rows.Next() {
		var r models.MatchingResult
		var calculatedAt sql.NullTime
		err := rows.Scan(&r.ID, &r.SessionID, &r.StudentID, &r.ProjectID,
			&r.GlobalScore, &r.SkillsScore, &r.InterestsScore, &r.WorkModeScore,
			&r.SkillsWeight, &r.InterestsWeight, &r.WorkModeWeight,
			&r.ThresholdUsed, &r.AboveThreshold, &r.RecommendationRank, &r.AlgorithmUsed,
			&calculatedAt)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to scan result row", true, err)
		}
		if calculatedAt.Valid {
			r.CalculatedAt = calculatedAt.Time
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "result listing aborted", true, err)
	}
	return results, nil
}
