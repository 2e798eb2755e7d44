package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"potencialize/internal/models"
)

type eventRepository struct {
	db DBTX
}

const eventColumns = `id, type, entity_kind, entity_id, actor_id, payload, created_at`

func scanEvent(s scanner) (*models.Event, error) {
	e := &models.Event{}
	var payload []byte
	if err := s.Scan(&e.ID, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (r *eventRepository) Append(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (id, type, entity_kind, entity_id, actor_id, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Type, e.EntityKind, e.EntityID, e.ActorID, payload, e.CreatedAt)
	return mapErr(err, "event", e.ID)
}

func (r *eventRepository) list(ctx context.Context, q string, args ...any) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, "events", "list")
	}
	defer rows.Close()
	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepository) ListByEntity(ctx context.Context, kind string, id int64) ([]models.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE entity_kind = $1 AND entity_id = $2 ORDER BY created_at`, kind, id)
}

func (r *eventRepository) ListRecent(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC LIMIT $1`, limit)
}

type cascadeRunRepository struct {
	db DBTX
}

const cascadeColumns = `id, entity_kind, entity_id, transition, status, actor_id, project_id, task_ids, error,
	started_at, finished_at`

func scanCascadeRun(s scanner) (*models.CascadeRun, error) {
	run := &models.CascadeRun{}
	var (
		projectID sql.NullInt64
		taskIDs   pq.Int64Array
		finished  sql.NullTime
	)
	err := s.Scan(&run.ID, &run.EntityKind, &run.EntityID, &run.Transition, &run.Status, &run.ActorID,
		&projectID, &taskIDs, &run.Error, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	run.ProjectID = ptrInt64(projectID)
	run.TaskIDs = append([]int64{}, taskIDs...)
	run.FinishedAt = ptrTime(finished)
	return run, nil
}

func (r *cascadeRunRepository) Create(ctx context.Context, run *models.CascadeRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cascade_runs (id, entity_kind, entity_id, transition, status, actor_id, project_id, task_ids,
			error, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		run.ID, run.EntityKind, run.EntityID, run.Transition, run.Status, run.ActorID,
		nullInt64(run.ProjectID), pq.Int64Array(run.TaskIDs), run.Error, run.StartedAt, run.FinishedAt)
	return mapErr(err, "cascade run", run.ID)
}

func (r *cascadeRunRepository) Get(ctx context.Context, id string) (*models.CascadeRun, error) {
	run, err := scanCascadeRun(r.db.QueryRowContext(ctx, `SELECT `+cascadeColumns+` FROM cascade_runs WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "cascade run", id)
	}
	return run, nil
}

func (r *cascadeRunRepository) Find(ctx context.Context, kind string, entityID int64, transition string) (*models.CascadeRun, error) {
	run, err := scanCascadeRun(r.db.QueryRowContext(ctx, `
		SELECT `+cascadeColumns+` FROM cascade_runs
		WHERE entity_kind = $1 AND entity_id = $2 AND transition = $3`, kind, entityID, transition))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err, "cascade run", entityID)
	}
	return run, nil
}

func (r *cascadeRunRepository) ListByStatus(ctx context.Context, status models.CascadeStatus) ([]models.CascadeRun, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+cascadeColumns+` FROM cascade_runs WHERE status = $1 ORDER BY started_at`, status)
	if err != nil {
		return nil, mapErr(err, "cascade runs", status)
	}
	defer rows.Close()
	var out []models.CascadeRun
	for rows.Next() {
		run, err := scanCascadeRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *cascadeRunRepository) Update(ctx context.Context, run *models.CascadeRun) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cascade_runs SET status=$1, actor_id=$2, project_id=$3, task_ids=$4, error=$5, finished_at=$6
		WHERE id=$7`,
		run.Status, run.ActorID, nullInt64(run.ProjectID), pq.Int64Array(run.TaskIDs), run.Error, run.FinishedAt, run.ID)
	if err != nil {
		return mapErr(err, "cascade run", run.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapErr(sql.ErrNoRows, "cascade run", run.ID)
	}
	return nil
}
