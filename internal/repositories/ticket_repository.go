package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"potencialize/internal/models"
)

type ticketRepository struct {
	db DBTX
}

const ticketColumns = `id, project_id, title, description, area, priority, status, opened_by, assigned_to,
	version, created_at, updated_at`

func scanTicket(s scanner) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := s.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Area, &t.Priority, &t.Status, &t.OpenedBy,
		&t.AssignedTo, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Interactions = []models.Interaction{}
	return t, nil
}

func (r *ticketRepository) Create(ctx context.Context, t *models.Ticket) error {
	const q = `
		INSERT INTO tickets (project_id, title, description, area, priority, status, opened_by, assigned_to,
			version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1,NOW(),NOW())
		RETURNING id, version, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q,
		t.ProjectID, t.Title, t.Description, t.Area, t.Priority, t.Status, t.OpenedBy, t.AssignedTo,
	).Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapErr(err, "ticket", t.Title)
	}
	for i := range t.Interactions {
		t.Interactions[i].TicketID = t.ID
		if err := r.AppendInteraction(ctx, &t.Interactions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "ticket", id)
	}
	list := []models.Ticket{*t}
	if err := r.loadInteractions(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *ticketRepository) List(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var (
		conditions []string
		args       []any
	)
	if f.ProjectID != nil {
		args = append(args, *f.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "tickets", "list")
	}
	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if err := r.loadInteractions(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ticketRepository) loadInteractions(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]int64, len(tickets))
	index := make(map[int64]int, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
		index[t.ID] = i
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ticket_id, sender, role, text, created_at FROM ticket_interactions
		WHERE ticket_id = ANY($1) ORDER BY created_at, id`, pq.Int64Array(ids))
	if err != nil {
		return mapErr(err, "interactions", "list")
	}
	defer rows.Close()

	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.ID, &in.TicketID, &in.Sender, &in.Role, &in.Text, &in.CreatedAt); err != nil {
			return err
		}
		i := index[in.TicketID]
		tickets[i].Interactions = append(tickets[i].Interactions, in)
	}
	return rows.Err()
}

func (r *ticketRepository) Update(ctx context.Context, t *models.Ticket) error {
	const q = `
		UPDATE tickets SET title=$1, description=$2, area=$3, priority=$4, status=$5, assigned_to=$6,
			version = version + 1, updated_at = NOW()
		WHERE id=$7 AND version=$8`
	res, err := r.db.ExecContext(ctx, q, t.Title, t.Description, t.Area, t.Priority, t.Status, t.AssignedTo,
		t.ID, t.Version)
	if err != nil {
		return mapErr(err, "ticket", t.ID)
	}
	if err := checkVersion(res, "ticket", t.ID); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (r *ticketRepository) AppendInteraction(ctx context.Context, in *models.Interaction) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ticket_interactions (ticket_id, sender, role, text, created_at)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		in.TicketID, in.Sender, in.Role, in.Text, in.CreatedAt).Scan(&in.ID)
	return mapErr(err, "interaction", in.TicketID)
}
