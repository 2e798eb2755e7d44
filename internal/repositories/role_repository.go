package repositories

import (
	"context"

	"github.com/lib/pq"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

type roleRepository struct {
	db DBTX
}

func scanRole(s scanner) (*models.Role, error) {
	r := &models.Role{}
	var perms pq.StringArray
	if err := s.Scan(&r.ID, &r.Name, &r.Description, &perms, &r.IsSystem, &r.Client); err != nil {
		return nil, err
	}
	r.Permissions = []string(perms)
	return r, nil
}

func (r *roleRepository) List(ctx context.Context) ([]models.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, permissions, is_system, client FROM roles ORDER BY id`)
	if err != nil {
		return nil, mapErr(err, "roles", "list")
	}
	defer rows.Close()

	var out []models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *role)
	}
	return out, rows.Err()
}

func (r *roleRepository) Get(ctx context.Context, id string) (*models.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx,
		`SELECT id, name, description, permissions, is_system, client FROM roles WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "role", id)
	}
	return role, nil
}

func (r *roleRepository) Upsert(ctx context.Context, role *models.Role) error {
	const q = `
		INSERT INTO roles (id, name, description, permissions, is_system, client)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			permissions = EXCLUDED.permissions, is_system = EXCLUDED.is_system, client = EXCLUDED.client`
	_, err := r.db.ExecContext(ctx, q, role.ID, role.Name, role.Description,
		pq.StringArray(role.Permissions), role.IsSystem, role.Client)
	return mapErr(err, "role", role.ID)
}

func (r *roleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "role", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("role", id)
	}
	return nil
}
