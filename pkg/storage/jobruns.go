package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

func (s *SQLStore) CreateJobRun(ctx context.Context, run *model.JobRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.JobRunning
	}
	if run.Params == "" {
		run.Params = "{}"
	}
	q := s.sb.Insert("job_runs").
		Columns("id", "job", "status", "params", "stats", "error", "attempts", "started_at", "finished_at").
		Values(run.ID, run.Job, string(run.Status), run.Params, run.Stats, run.Error, run.Attempts,
			run.StartedAt.UTC(), nullTime(run.FinishedAt))
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("insert job run: %w", err)
	}
	return nil
}

func (s *SQLStore) FinishJobRun(ctx context.Context, run *model.JobRun) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	q := s.sb.Update("job_runs").
		Set("status", string(run.Status)).
		Set("stats", run.Stats).
		Set("error", run.Error).
		Set("attempts", run.Attempts).
		Set("finished_at", nullTime(run.FinishedAt)).
		Where(sq.Eq{"id": run.ID})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("finish job run: %w", err)
	}
	return nil
}

func (s *SQLStore) ListJobRuns(ctx context.Context, job string, limit int) ([]model.JobRun, error) {
	q := s.sb.Select("id", "job", "status", "params", "stats", "error", "attempts", "started_at", "finished_at").
		From("job_runs").
		OrderBy("started_at DESC").
		Limit(limitOr(limit, 20))
	if job != "" {
		q = q.Where(sq.Eq{"job": job})
	}
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query job runs: %w", err)
	}
	defer rows.Close()

	var runs []model.JobRun
	for rows.Next() {
		var r model.JobRun
		var status string
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Job, &status, &r.Params, &r.Stats, &r.Error, &r.Attempts,
			&r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		r.Status = model.JobStatus(status)
		r.FinishedAt = timePtr(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
