package repositories

import (
	"context"
	"strings"

	"potencialize/internal/models"
)

type userRepository struct {
	db DBTX
}

const userColumns = `id, name, email, company_name, password_hash, role_id, active, version, created_at`

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.CompanyName, &u.PasswordHash, &u.RoleID, &u.Active, &u.Version, &u.CreatedAt)
	return u, err
}

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	const q = `
		INSERT INTO users (name, email, company_name, password_hash, role_id, active, version, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,1,NOW())
		RETURNING id, version, created_at`
	err := r.db.QueryRowContext(ctx, q,
		u.Name, strings.ToLower(u.Email), u.CompanyName, u.PasswordHash, u.RoleID, u.Active,
	).Scan(&u.ID, &u.Version, &u.CreatedAt)
	return mapErr(err, "user", u.Email)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "user", id)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, mapErr(err, "user", email)
	}
	return u, nil
}

func (r *userRepository) list(ctx context.Context, q string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, "users", "list")
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func (r *userRepository) ListByCompany(ctx context.Context, company string) ([]models.User, error) {
	return r.list(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE lower(regexp_replace(trim(company_name), '\s+', ' ', 'g')) = $1
		ORDER BY id`, strings.ToLower(strings.Join(strings.Fields(company), " ")))
}

func (r *userRepository) CountByRole(ctx context.Context, roleID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&n)
	return n, mapErr(err, "users", roleID)
}

func (r *userRepository) Update(ctx context.Context, u *models.User) error {
	const q = `
		UPDATE users SET name=$1, email=$2, company_name=$3, password_hash=$4, role_id=$5, active=$6,
			version = version + 1
		WHERE id=$7 AND version=$8`
	res, err := r.db.ExecContext(ctx, q,
		u.Name, strings.ToLower(u.Email), u.CompanyName, u.PasswordHash, u.RoleID, u.Active, u.ID, u.Version)
	if err != nil {
		return mapErr(err, "user", u.ID)
	}
	if err := checkVersion(res, "user", u.ID); err != nil {
		return err
	}
	u.Version++
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return mapErr(err, "user", id)
}
