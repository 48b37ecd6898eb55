package approval

import (
	"context"
	"errors"
	"fmt"

	"visitor_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const linkColumns = `id, tenant_id, appointment_id, token, is_used, used_at, created_at`

// Repository stores approval links in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new approval link repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) conn(q db.DBTX) db.DBTX {
	if q == nil {
		return r.pool
	}
	return q
}

func scanLink(row pgx.Row) (*Link, error) {
	var l Link
	if err := row.Scan(&l.ID, &l.TenantID, &l.AppointmentID, &l.Token, &l.IsUsed, &l.UsedAt, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repository) FindByAppointment(ctx context.Context, q db.DBTX, appointmentID uuid.UUID) (*Link, error) {
	link, err := scanLink(r.conn(q).QueryRow(ctx,
		`SELECT `+linkColumns+` FROM approval_links WHERE appointment_id = $1`, appointmentID))
	if err != nil {
		return nil, fmt.Errorf("failed to find approval link: %w", err)
	}
	return link, nil
}

func (r *Repository) FindByToken(ctx context.Context, q db.DBTX, token string) (*Link, error) {
	link, err := scanLink(r.conn(q).QueryRow(ctx,
		`SELECT `+linkColumns+` FROM approval_links WHERE token = $1`, token))
	if err != nil {
		return nil, fmt.Errorf("failed to find approval link: %w", err)
	}
	return link, nil
}

// InsertIfAbsent inserts link unless its appointment or token already has one.
// ON CONFLICT keeps the surrounding transaction usable after a collision.
func (r *Repository) InsertIfAbsent(ctx context.Context, q db.DBTX, link Link) (bool, error) {
	result, err := r.conn(q).Exec(ctx,
		`INSERT INTO approval_links (id, tenant_id, appointment_id, token)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		link.ID, link.TenantID, link.AppointmentID, link.Token,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert approval link: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// Claim flips is_used for an unused token and returns the link, or nil when nothing was claimed.
func (r *Repository) Claim(ctx context.Context, q db.DBTX, token string) (*Link, error) {
	link, err := scanLink(r.conn(q).QueryRow(ctx,
		`UPDATE approval_links
		 SET is_used = true, used_at = now()
		 WHERE token = $1 AND is_used = false
		 RETURNING `+linkColumns, token))
	if err != nil {
		return nil, fmt.Errorf("failed to claim approval link: %w", err)
	}
	return link, nil
}

func (r *Repository) MarkUsedByAppointment(ctx context.Context, q db.DBTX, appointmentID uuid.UUID) error {
	_, err := r.conn(q).Exec(ctx,
		`UPDATE approval_links SET is_used = true, used_at = now()
		 WHERE appointment_id = $1 AND is_used = false`, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to mark approval link used: %w", err)
	}
	return nil
}

func (r *Repository) PublicAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID) (*PublicAppointment, error) {
	var p PublicAppointment
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.purpose, to_char(a.scheduled_date, 'YYYY-MM-DD'), a.scheduled_time, a.duration, a.status,
			e.name, e.department, v.name, v.company
		 FROM appointments a
		 JOIN employees e ON e.id = a.employee_id
		 JOIN visitors v ON v.id = a.visitor_id
		 WHERE a.id = $1 AND a.tenant_id = $2 AND NOT a.is_deleted`,
		appointmentID, tenantID,
	).Scan(&p.ID, &p.Purpose, &p.ScheduledDate, &p.ScheduledTime, &p.Duration, &p.Status,
		&p.EmployeeName, &p.EmployeeDepartment, &p.VisitorName, &p.VisitorCompany)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load public appointment: %w", err)
	}
	return &p, nil
}
