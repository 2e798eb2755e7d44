package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"potencialize/internal/models"
)

type onboardingRepository struct {
	db DBTX
}

const onboardingColumns = `id, client_name, product, consultant, stage, start_date, project_id, version`

func scanOnboarding(s scanner) (*models.OnboardingItem, error) {
	o := &models.OnboardingItem{}
	var projectID sql.NullInt64
	if err := s.Scan(&o.ID, &o.ClientName, &o.Product, &o.Consultant, &o.Stage, &o.StartDate, &projectID, &o.Version); err != nil {
		return nil, err
	}
	o.ProjectID = ptrInt64(projectID)
	o.Checklist = []models.ChecklistItem{}
	o.Notes = []models.OnboardingNote{}
	return o, nil
}

func (r *onboardingRepository) Create(ctx context.Context, o *models.OnboardingItem) error {
	const q = `
		INSERT INTO onboarding_items (client_name, product, consultant, stage, start_date, project_id, version)
		VALUES ($1,$2,$3,$4,$5,$6,1)
		RETURNING id, version`
	err := r.db.QueryRowContext(ctx, q,
		o.ClientName, o.Product, o.Consultant, o.Stage, o.StartDate, nullInt64(o.ProjectID),
	).Scan(&o.ID, &o.Version)
	if err != nil {
		return mapErr(err, "onboarding", o.ClientName)
	}
	return r.insertChecklist(ctx, o)
}

func (r *onboardingRepository) insertChecklist(ctx context.Context, o *models.OnboardingItem) error {
	for i := range o.Checklist {
		c := &o.Checklist[i]
		c.OnboardingID = o.ID
		c.Position = i
		err := r.db.QueryRowContext(ctx, `
			INSERT INTO checklist_items (onboarding_id, title, completed, due_date, assigned_to, position)
			VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			c.OnboardingID, c.Title, c.Completed, c.DueDate, c.AssignedTo, c.Position).Scan(&c.ID)
		if err != nil {
			return mapErr(err, "checklist item", c.Title)
		}
	}
	return nil
}

func (r *onboardingRepository) GetByID(ctx context.Context, id int64) (*models.OnboardingItem, error) {
	o, err := scanOnboarding(r.db.QueryRowContext(ctx,
		`SELECT `+onboardingColumns+` FROM onboarding_items WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "onboarding", id)
	}
	list := []models.OnboardingItem{*o}
	if err := r.loadChildren(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *onboardingRepository) List(ctx context.Context) ([]models.OnboardingItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+onboardingColumns+` FROM onboarding_items ORDER BY start_date DESC, id`)
	if err != nil {
		return nil, mapErr(err, "onboarding", "list")
	}
	var out []models.OnboardingItem
	for rows.Next() {
		o, err := scanOnboarding(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *o)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *onboardingRepository) loadChildren(ctx context.Context, items []models.OnboardingItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i, o := range items {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, onboarding_id, title, completed, due_date, assigned_to, position FROM checklist_items
		WHERE onboarding_id = ANY($1) ORDER BY onboarding_id, position`, pq.Int64Array(ids))
	if err != nil {
		return mapErr(err, "checklist", "list")
	}
	for rows.Next() {
		var (
			c   models.ChecklistItem
			due sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.OnboardingID, &c.Title, &c.Completed, &due, &c.AssignedTo, &c.Position); err != nil {
			rows.Close()
			return err
		}
		c.DueDate = ptrTime(due)
		i := index[c.OnboardingID]
		items[i].Checklist = append(items[i].Checklist, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT id, onboarding_id, text, user_name, created_at FROM onboarding_notes
		WHERE onboarding_id = ANY($1) ORDER BY created_at`, pq.Int64Array(ids))
	if err != nil {
		return mapErr(err, "onboarding notes", "list")
	}
	defer rows.Close()
	for rows.Next() {
		var n models.OnboardingNote
		if err := rows.Scan(&n.ID, &n.OnboardingID, &n.Text, &n.User, &n.CreatedAt); err != nil {
			return err
		}
		i := index[n.OnboardingID]
		items[i].Notes = append(items[i].Notes, n)
	}
	return rows.Err()
}

func (r *onboardingRepository) Update(ctx context.Context, o *models.OnboardingItem) error {
	const q = `
		UPDATE onboarding_items SET client_name=$1, product=$2, consultant=$3, stage=$4, start_date=$5,
			project_id=$6, version = version + 1
		WHERE id=$7 AND version=$8`
	res, err := r.db.ExecContext(ctx, q, o.ClientName, o.Product, o.Consultant, o.Stage, o.StartDate,
		nullInt64(o.ProjectID), o.ID, o.Version)
	if err != nil {
		return mapErr(err, "onboarding", o.ID)
	}
	if err := checkVersion(res, "onboarding", o.ID); err != nil {
		return err
	}
	o.Version++
	if _, err := r.db.ExecContext(ctx, `DELETE FROM checklist_items WHERE onboarding_id = $1`, o.ID); err != nil {
		return mapErr(err, "checklist", o.ID)
	}
	return r.insertChecklist(ctx, o)
}

func (r *onboardingRepository) AddNote(ctx context.Context, n *models.OnboardingNote) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO onboarding_notes (onboarding_id, text, user_name, created_at)
		VALUES ($1,$2,$3,NOW()) RETURNING id, created_at`,
		n.OnboardingID, n.Text, n.User).Scan(&n.ID, &n.CreatedAt)
	return mapErr(err, "onboarding note", n.OnboardingID)
}
