package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"potencialize/internal/models"
)

type taskRepository struct {
	db DBTX
}

const taskColumns = `id, project_id, title, description, status, due_date, assigned_to, assignee_type,
	version, created_at, updated_at`

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		projectID sql.NullInt64
		due       sql.NullTime
	)
	err := s.Scan(&t.ID, &projectID, &t.Title, &t.Description, &t.Status, &due, &t.AssignedTo, &t.AssigneeType,
		&t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.ProjectID = ptrInt64(projectID)
	t.DueDate = ptrTime(due)
	t.SubTasks = []models.SubTask{}
	return t, nil
}

func (r *taskRepository) Create(ctx context.Context, t *models.Task) error {
	const q = `
		INSERT INTO tasks (project_id, title, description, status, due_date, assigned_to, assignee_type,
			version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,1,NOW(),NOW())
		RETURNING id, version, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q,
		nullInt64(t.ProjectID), t.Title, t.Description, t.Status, t.DueDate, t.AssignedTo, t.AssigneeType,
	).Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapErr(err, "task", t.Title)
	}
	return r.insertSubTasks(ctx, t)
}

func (r *taskRepository) insertSubTasks(ctx context.Context, t *models.Task) error {
	for i := range t.SubTasks {
		st := &t.SubTasks[i]
		st.TaskID = t.ID
		st.Position = i
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO subtasks (task_id, title, completed, position) VALUES ($1,$2,$3,$4) RETURNING id`,
			st.TaskID, st.Title, st.Completed, st.Position).Scan(&st.ID)
		if err != nil {
			return mapErr(err, "subtask", st.Title)
		}
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "task", id)
	}
	tasks := []models.Task{*t}
	if err := r.loadSubTasks(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (r *taskRepository) List(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	conditions := []string{}
	args := []any{}
	argID := 1

	if f.ProjectID != nil {
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", argID))
		args = append(args, *f.ProjectID)
		argID++
	}
	if f.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", argID))
		args = append(args, *f.AssignedTo)
		argID++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *f.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date NULLS LAST, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "tasks", "list")
	}
	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.loadSubTasks(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) loadSubTasks(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int64, len(tasks))
	index := make(map[int64]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, title, completed, position FROM subtasks
		WHERE task_id = ANY($1) ORDER BY task_id, position`, pq.Int64Array(ids))
	if err != nil {
		return mapErr(err, "subtasks", "list")
	}
	defer rows.Close()

	for rows.Next() {
		var st models.SubTask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.Completed, &st.Position); err != nil {
			return err
		}
		i := index[st.TaskID]
		tasks[i].SubTasks = append(tasks[i].SubTasks, st)
	}
	return rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, t *models.Task) error {
	const q = `
		UPDATE tasks SET project_id=$1, title=$2, description=$3, status=$4, due_date=$5, assigned_to=$6,
			assignee_type=$7, version = version + 1, updated_at = NOW()
		WHERE id=$8 AND version=$9`
	res, err := r.db.ExecContext(ctx, q,
		nullInt64(t.ProjectID), t.Title, t.Description, t.Status, t.DueDate, t.AssignedTo, t.AssigneeType,
		t.ID, t.Version)
	if err != nil {
		return mapErr(err, "task", t.ID)
	}
	if err := checkVersion(res, "task", t.ID); err != nil {
		return err
	}
	t.Version++
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE task_id = $1`, t.ID); err != nil {
		return mapErr(err, "subtasks", t.ID)
	}
	return r.insertSubTasks(ctx, t)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return mapErr(err, "task", id)
}
