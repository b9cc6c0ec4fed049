// internal/store/projects.go
package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/models"
)

// ProjectStore reads project snapshots. Only projects in the ACTIVE state
// take part in matching.
type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const listProjectsQuery = `
	SELECT p.id,
	       COALESCE(array_agg(DISTINCT ps.skill_id) FILTER (WHERE ps.skill_id IS NOT NULL), '{}'),
	       COALESCE(array_agg(DISTINCT pk.keyword_id) FILTER (WHERE pk.keyword_id IS NOT NULL), '{}'),
	       COALESCE(p.work_mode, ''),
	       COALESCE(p.min_students, 0),
	       COALESCE(p.max_students, 0)
	FROM projects p
	LEFT JOIN project_skills ps ON ps.project_id = p.id
	LEFT JOIN project_keywords pk ON pk.project_id = p.id
	WHERE p.status = 'ACTIVE'
	GROUP BY p.id, p.work_mode, p.min_students, p.max_students
	ORDER BY p.id`

func (s *ProjectStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, listProjectsQuery)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to list projects", true, err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var mode string
		err := rows.Scan(&p.ID, pq.Array(&p.RequiredSkills), pq.Array(&p.Keywords),
			&mode, &p.MinStudents, &p.MaxStudents)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "failed to scan project row", true, err)
		}
		p.WorkMode = models.WorkMode(mode)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "project listing aborted", true, err)
	}
	return projects, nil
}
