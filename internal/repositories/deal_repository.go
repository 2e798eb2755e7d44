package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"potencialize/internal/models"
)

type dealRepository struct {
	db DBTX
}

const dealColumns = `id, lead_id, title, company, owner, stage, value, product_interest,
	additional_products, priority, version, created_at, updated_at`

func scanDeal(s scanner) (*models.Deal, error) {
	d := &models.Deal{}
	var (
		leadID sql.NullInt64
		extra  pq.StringArray
	)
	err := s.Scan(&d.ID, &leadID, &d.Title, &d.Company, &d.Owner, &d.Stage, &d.Value, &d.ProductInterest,
		&extra, &d.Priority, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.LeadID = ptrInt64(leadID)
	d.AdditionalProducts = append([]string{}, extra...)
	return d, nil
}

func (r *dealRepository) Create(ctx context.Context, d *models.Deal) error {
	const q = `
		INSERT INTO deals (lead_id, title, company, owner, stage, value, product_interest,
			additional_products, priority, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1,NOW(),NOW())
		RETURNING id, version, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q,
		nullInt64(d.LeadID), d.Title, d.Company, d.Owner, d.Stage, d.Value, d.ProductInterest,
		pq.StringArray(d.AdditionalProducts), d.Priority,
	).Scan(&d.ID, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	return mapErr(err, "deal", d.Title)
}

func (r *dealRepository) GetByID(ctx context.Context, id int64) (*models.Deal, error) {
	d, err := scanDeal(r.db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "deal", id)
	}
	return d, nil
}

func (r *dealRepository) GetByLeadID(ctx context.Context, leadID int64) (*models.Deal, error) {
	d, err := scanDeal(r.db.QueryRowContext(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE lead_id = $1 ORDER BY created_at DESC LIMIT 1`, leadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err, "deal by lead", leadID)
	}
	return d, nil
}

func (r *dealRepository) List(ctx context.Context) ([]models.Deal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+dealColumns+` FROM deals ORDER BY updated_at DESC`)
	if err != nil {
		return nil, mapErr(err, "deals", "list")
	}
	defer rows.Close()

	var out []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *dealRepository) Update(ctx context.Context, d *models.Deal) error {
	const q = `
		UPDATE deals SET title=$1, company=$2, owner=$3, stage=$4, value=$5, product_interest=$6,
			additional_products=$7, priority=$8, version = version + 1, updated_at = NOW()
		WHERE id=$9 AND version=$10`
	res, err := r.db.ExecContext(ctx, q,
		d.Title, d.Company, d.Owner, d.Stage, d.Value, d.ProductInterest,
		pq.StringArray(d.AdditionalProducts), d.Priority, d.ID, d.Version)
	if err != nil {
		return mapErr(err, "deal", d.ID)
	}
	if err := checkVersion(res, "deal", d.ID); err != nil {
		return err
	}
	d.Version++
	return nil
}

func (r *dealRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id = $1`, id)
	return mapErr(err, "deal", id)
}

type productRepository struct {
	db DBTX
}

func (r *productRepository) List(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, price, category, description FROM products ORDER BY title`)
	if err != nil {
		return nil, mapErr(err, "products", "list")
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Category, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *productRepository) Create(ctx context.Context, p *models.Product) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (title, price, category, description) VALUES ($1,$2,$3,$4) RETURNING id`,
		p.Title, p.Price, p.Category, p.Description).Scan(&p.ID)
	return mapErr(err, "product", p.Title)
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return mapErr(err, "product", id)
}
