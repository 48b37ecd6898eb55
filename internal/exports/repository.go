package exports

import (
	"context"
	"fmt"
	"time"

	"visitor_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const opListVisits = "exports.repository.list_visits"

// Visit is one appointment row of the visitor log.
type Visit struct {
	ScheduledDate  time.Time
	ScheduledTime  string
	VisitorName    string
	VisitorCompany string
	VisitorPhone   string
	EmployeeName   string
	Department     string
	Purpose        string
	Status         string
	CheckInTime    *time.Time
	CheckOutTime   *time.Time
	ActualDuration *int
	BadgeNumber    *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListVisits returns the tenant's live appointments scheduled between from and to, inclusive.
func (r *Repository) ListVisits(ctx context.Context, tenantID uuid.UUID, from, to time.Time, limit int) ([]Visit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.scheduled_date, a.scheduled_time, v.name, v.company, v.phone,
			e.name, e.department, a.purpose, a.status,
			a.check_in_time, a.check_out_time, a.actual_duration, a.badge_number
		FROM appointments a
		JOIN visitors v ON v.id = a.visitor_id
		JOIN employees e ON e.id = a.employee_id
		WHERE a.tenant_id = $1
			AND NOT a.is_deleted
			AND a.scheduled_date BETWEEN $2 AND $3
		ORDER BY a.scheduled_date, a.scheduled_time, v.name
		LIMIT $4
	`, tenantID, from, to, limit)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list visits query failed: %v", err)).WithOp(opListVisits)
	}
	defer rows.Close()

	visits := make([]Visit, 0)
	for rows.Next() {
		var v Visit
		if err := rows.Scan(
			&v.ScheduledDate, &v.ScheduledTime, &v.VisitorName, &v.VisitorCompany, &v.VisitorPhone,
			&v.EmployeeName, &v.Department, &v.Purpose, &v.Status,
			&v.CheckInTime, &v.CheckOutTime, &v.ActualDuration, &v.BadgeNumber,
		); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan visit failed: %v", err)).WithOp(opListVisits)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate visits failed: %v", err)).WithOp(opListVisits)
	}
	return visits, nil
}
