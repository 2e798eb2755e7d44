package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"potencialize/internal/models"
)

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) DealFunnel(ctx context.Context) ([]StageSummary, error) {
	const q = `
		SELECT stage, COUNT(*) AS count, COALESCE(SUM(value), 0) AS value
		FROM deals
		GROUP BY stage`
	var out []StageSummary
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, mapErr(err, "report", "funnel")
	}
	return out, nil
}

func (r *reportRepository) ProjectHealth(ctx context.Context) ([]ProjectSummary, error) {
	const q = `
		SELECT sla_status, COUNT(*) AS count, COALESCE(AVG(progress), 0) AS progress
		FROM projects
		GROUP BY sla_status
		ORDER BY sla_status`
	var out []ProjectSummary
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, mapErr(err, "report", "projects")
	}
	return out, nil
}

func (r *reportRepository) WonValueSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(value), 0) FROM deals WHERE stage = $1 AND updated_at >= $2`,
		models.DealStageWon, since)
	return total, mapErr(err, "report", "won value")
}
