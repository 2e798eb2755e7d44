package repositories

import (
	"context"

	"potencialize/internal/models"
)

type leadRepository struct {
	db DBTX
}

const leadColumns = `id, name, company, email, phone, status, version, created_at`

func scanLead(s scanner) (*models.Lead, error) {
	l := &models.Lead{}
	err := s.Scan(&l.ID, &l.Name, &l.Company, &l.Email, &l.Phone, &l.Status, &l.Version, &l.CreatedAt)
	return l, err
}

func (r *leadRepository) Create(ctx context.Context, l *models.Lead) error {
	const q = `
		INSERT INTO leads (name, company, email, phone, status, version, created_at)
		VALUES ($1,$2,$3,$4,$5,1,NOW())
		RETURNING id, version, created_at`
	err := r.db.QueryRowContext(ctx, q, l.Name, l.Company, l.Email, l.Phone, l.Status).
		Scan(&l.ID, &l.Version, &l.CreatedAt)
	return mapErr(err, "lead", l.Name)
}

func (r *leadRepository) GetByID(ctx context.Context, id int64) (*models.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "lead", id)
	}
	return l, nil
}

func (r *leadRepository) List(ctx context.Context) ([]models.Lead, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapErr(err, "leads", "list")
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *leadRepository) Update(ctx context.Context, l *models.Lead) error {
	const q = `
		UPDATE leads SET name=$1, company=$2, email=$3, phone=$4, status=$5, version = version + 1
		WHERE id=$6 AND version=$7`
	res, err := r.db.ExecContext(ctx, q, l.Name, l.Company, l.Email, l.Phone, l.Status, l.ID, l.Version)
	if err != nil {
		return mapErr(err, "lead", l.ID)
	}
	if err := checkVersion(res, "lead", l.ID); err != nil {
		return err
	}
	l.Version++
	return nil
}

func (r *leadRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	return mapErr(err, "lead", id)
}
