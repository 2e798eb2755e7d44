package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"potencialize/internal/apperr"
)

const uniqueViolation = "23505"

// PostgresStore runs WithinTx in a single database transaction.
type PostgresStore struct {
	db      *sql.DB
	reports ReportRepository
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, reports: NewReportRepository(sqlx.NewDb(db, "postgres"))}
}

func (s *PostgresStore) Repos() Repos {
	return newPostgresRepos(s.db, s.reports)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err, "transaction", "begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(newPostgresRepos(tx, s.reports)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err, "transaction", "commit")
	}
	return nil
}

func newPostgresRepos(db DBTX, reports ReportRepository) Repos {
	return Repos{
		Users:       &userRepository{db: db},
		Roles:       &roleRepository{db: db},
		Leads:       &leadRepository{db: db},
		Deals:       &dealRepository{db: db},
		Products:    &productRepository{db: db},
		Projects:    &projectRepository{db: db},
		Tasks:       &taskRepository{db: db},
		Tickets:     &ticketRepository{db: db},
		Onboarding:  &onboardingRepository{db: db},
		Events:      &eventRepository{db: db},
		CascadeRuns: &cascadeRunRepository{db: db},
		Reports:     reports,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// mapErr translates driver errors into the apperr taxonomy.
func mapErr(err error, kind string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(kind, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperr.Conflict("%s %v: %s", kind, id, pqErr.Constraint)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Transient(fmt.Errorf("%s %v: %w", kind, id, err))
	}
	return fmt.Errorf("%s %v: %w", kind, id, err)
}

// checkVersion turns a zero-row optimistic update into a conflict.
func checkVersion(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict("%s %d was modified concurrently or does not exist", kind, id)
	}
	return nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func ptrTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}
