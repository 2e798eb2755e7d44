package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

type projectRepository struct {
	db DBTX
}

const projectColumns = `id, code, title, description, type, client_name, manager, status, sla_status, progress,
	start_date, end_date, contract_start, contract_end, source_kind, source_id, version, created_at, updated_at`

func scanProject(s scanner) (*models.Project, error) {
	p := &models.Project{}
	var (
		start, end, cStart, cEnd sql.NullTime
		sourceID                 sql.NullInt64
	)
	err := s.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &p.Type, &p.ClientName, &p.Manager, &p.Status,
		&p.SLAStatus, &p.Progress, &start, &end, &cStart, &cEnd, &p.SourceKind, &sourceID,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.StartDate, p.EndDate = ptrTime(start), ptrTime(end)
	p.ContractStart, p.ContractEnd = ptrTime(cStart), ptrTime(cEnd)
	p.SourceID = ptrInt64(sourceID)
	return p, nil
}

func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	const q = `
		INSERT INTO projects (code, title, description, type, client_name, manager, status, sla_status, progress,
			start_date, end_date, contract_start, contract_end, source_kind, source_id, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1,NOW(),NOW())
		RETURNING id, version, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q,
		p.Code, p.Title, p.Description, p.Type, p.ClientName, p.Manager, p.Status, p.SLAStatus, p.Progress,
		p.StartDate, p.EndDate, p.ContractStart, p.ContractEnd, p.SourceKind, nullInt64(p.SourceID),
	).Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return mapErr(err, "project", p.Code)
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "project", id)
	}
	return p, nil
}

func (r *projectRepository) GetBySource(ctx context.Context, kind string, id int64) (*models.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE source_kind = $1 AND source_id = $2`, kind, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err, "project by source", id)
	}
	return p, nil
}

func (r *projectRepository) List(ctx context.Context) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapErr(err, "projects", "list")
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *projectRepository) Update(ctx context.Context, p *models.Project) error {
	const q = `
		UPDATE projects SET title=$1, description=$2, type=$3, client_name=$4, manager=$5, status=$6,
			sla_status=$7, progress=$8, start_date=$9, end_date=$10, contract_start=$11, contract_end=$12,
			version = version + 1, updated_at = NOW()
		WHERE id=$13 AND version=$14`
	res, err := r.db.ExecContext(ctx, q,
		p.Title, p.Description, p.Type, p.ClientName, p.Manager, p.Status, p.SLAStatus, p.Progress,
		p.StartDate, p.EndDate, p.ContractStart, p.ContractEnd, p.ID, p.Version)
	if err != nil {
		return mapErr(err, "project", p.ID)
	}
	if err := checkVersion(res, "project", p.ID); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "project", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("project", id)
	}
	return nil
}

func (r *projectRepository) AddMeeting(ctx context.Context, m *models.Meeting) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO meetings (project_id, title, date, duration_minutes, link, attendees)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		m.ProjectID, m.Title, m.Date, m.DurationMinutes, m.Link, pq.StringArray(m.Attendees)).Scan(&m.ID)
	return mapErr(err, "meeting", m.Title)
}

func (r *projectRepository) ListMeetings(ctx context.Context, projectID int64) ([]models.Meeting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, title, date, duration_minutes, link, attendees
		FROM meetings WHERE project_id = $1 ORDER BY date`, projectID)
	if err != nil {
		return nil, mapErr(err, "meetings", projectID)
	}
	defer rows.Close()

	var out []models.Meeting
	for rows.Next() {
		var (
			m         models.Meeting
			attendees pq.StringArray
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Date, &m.DurationMinutes, &m.Link, &attendees); err != nil {
			return nil, err
		}
		m.Attendees = append([]string{}, attendees...)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *projectRepository) AddDocument(ctx context.Context, d *models.Document) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO documents (project_id, title, type, url, uploaded_by, uploaded_at, version)
		VALUES ($1,$2,$3,$4,$5,NOW(),$6) RETURNING id, uploaded_at`,
		d.ProjectID, d.Title, d.Type, d.URL, d.UploadedBy, d.Version).Scan(&d.ID, &d.UploadedAt)
	return mapErr(err, "document", d.Title)
}

func (r *projectRepository) ListDocuments(ctx context.Context, projectID int64) ([]models.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, title, type, url, uploaded_by, uploaded_at, version
		FROM documents WHERE project_id = $1 ORDER BY uploaded_at DESC`, projectID)
	if err != nil {
		return nil, mapErr(err, "documents", projectID)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Type, &d.URL, &d.UploadedBy, &d.UploadedAt, &d.Version); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *projectRepository) AddNote(ctx context.Context, n *models.ProjectNote) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO project_notes (project_id, text, type, author, created_at)
		VALUES ($1,$2,$3,$4,NOW()) RETURNING id, created_at`,
		n.ProjectID, n.Text, n.Type, n.Author).Scan(&n.ID, &n.CreatedAt)
	return mapErr(err, "project note", n.ProjectID)
}

func (r *projectRepository) ListNotes(ctx context.Context, projectID int64) ([]models.ProjectNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, text, type, author, created_at
		FROM project_notes WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, mapErr(err, "project notes", projectID)
	}
	defer rows.Close()

	var out []models.ProjectNote
	for rows.Next() {
		var n models.ProjectNote
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.Text, &n.Type, &n.Author, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
