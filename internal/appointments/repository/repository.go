package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for appointments.
// Methods that take a db.DBTX participate in the caller's transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `a.id, a.tenant_id, a.employee_id, a.visitor_id, a.created_by, a.purpose,
	a.scheduled_date, a.scheduled_time, a.duration, a.meeting_room, a.notes, a.vehicle_number, a.vehicle_type,
	a.status, a.check_in_time, a.check_out_time, a.actual_duration,
	a.badge_issued, a.badge_number, a.security_clearance, a.security_notes,
	a.email_sent, a.whatsapp_sent, a.sms_sent, a.reminder_sent,
	a.is_deleted, a.deleted_at, a.deleted_by, a.created_at, a.updated_at`

const viewColumns = appointmentColumns + `,
	v.name, v.email, v.phone, v.company,
	e.account_id, e.name, e.email, e.phone, e.department, e.status, e.is_deleted`

const viewJoins = `FROM appointments a
	JOIN visitors v ON v.id = a.visitor_id
	JOIN employees e ON e.id = a.employee_id`

func appointmentDest(a *domain.Appointment, status *string) []any {
	return []any{
		&a.ID, &a.TenantID, &a.EmployeeID, &a.VisitorID, &a.CreatedBy, &a.Purpose,
		&a.ScheduledDate, &a.ScheduledTime, &a.Duration, &a.MeetingRoom, &a.Notes, &a.VehicleNumber, &a.VehicleType,
		status, &a.CheckInTime, &a.CheckOutTime, &a.ActualDuration,
		&a.BadgeIssued, &a.BadgeNumber, &a.SecurityClearance, &a.SecurityNotes,
		&a.EmailSent, &a.WhatsAppSent, &a.SMSSent, &a.ReminderSent,
		&a.IsDeleted, &a.DeletedAt, &a.DeletedBy, &a.CreatedAt, &a.UpdatedAt,
	}
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var appt domain.Appointment
	var status string
	if err := row.Scan(appointmentDest(&appt, &status)...); err != nil {
		return nil, err
	}
	appt.Status = domain.Status(status)
	return &appt, nil
}

func scanView(row pgx.Row) (*domain.View, error) {
	var view domain.View
	var status, employeeStatus string
	dest := appointmentDest(&view.Appointment, &status)
	dest = append(dest,
		&view.Visitor.Name, &view.Visitor.Email, &view.Visitor.Phone, &view.Visitor.Company,
		&view.Employee.AccountID, &view.Employee.Name, &view.Employee.Email, &view.Employee.Phone,
		&view.Employee.Department, &employeeStatus, &view.Employee.IsDeleted,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	view.Status = domain.Status(status)
	view.Visitor.ID = view.VisitorID
	view.Employee.ID = view.EmployeeID
	view.Employee.Active = employeeStatus == "Active"
	return &view, nil
}

// Create inserts a new appointment and fills its generated timestamps.
func (r *Repository) Create(ctx context.Context, q db.DBTX, appt *domain.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, tenant_id, employee_id, visitor_id, created_by, purpose, scheduled_date, scheduled_time,
			duration, meeting_room, notes, vehicle_number, vehicle_type, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING created_at, updated_at`

	err := q.QueryRow(ctx, query,
		appt.ID, appt.TenantID, appt.EmployeeID, appt.VisitorID, appt.CreatedBy, appt.Purpose,
		appt.ScheduledDate, appt.ScheduledTime, appt.Duration, appt.MeetingRoom, appt.Notes,
		appt.VehicleNumber, appt.VehicleType, string(appt.Status),
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetForUpdate reads and row-locks an appointment inside q's transaction.
// Soft-deleted rows are returned only when includeDeleted is set.
func (r *Repository) GetForUpdate(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID, includeDeleted bool) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments a
		WHERE a.id = $1 AND a.tenant_id = $2 AND ($3 OR NOT a.is_deleted)
		FOR UPDATE`

	appt, err := scanAppointment(q.QueryRow(ctx, query, id, tenantID, includeDeleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(domain.MsgAppointmentNotFound)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// Save writes every mutable column of appt.
func (r *Repository) Save(ctx context.Context, q db.DBTX, appt *domain.Appointment) error {
	query := `
		UPDATE appointments SET
			employee_id = $3,
			purpose = $4,
			scheduled_date = $5,
			scheduled_time = $6,
			duration = $7,
			meeting_room = $8,
			notes = $9,
			vehicle_number = $10,
			vehicle_type = $11,
			status = $12,
			check_in_time = $13,
			check_out_time = $14,
			actual_duration = $15,
			badge_issued = $16,
			badge_number = $17,
			security_clearance = $18,
			security_notes = $19,
			reminder_sent = $20,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`

	err := q.QueryRow(ctx, query,
		appt.ID, appt.TenantID, appt.EmployeeID, appt.Purpose, appt.ScheduledDate, appt.ScheduledTime,
		appt.Duration, appt.MeetingRoom, appt.Notes, appt.VehicleNumber, appt.VehicleType, string(appt.Status),
		appt.CheckInTime, appt.CheckOutTime, appt.ActualDuration, appt.BadgeIssued, appt.BadgeNumber,
		appt.SecurityClearance, appt.SecurityNotes, appt.ReminderSent,
	).Scan(&appt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(domain.MsgAppointmentNotFound)
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// LockSlot serializes writers on one employee slot until the transaction ends.
func (r *Repository) LockSlot(ctx context.Context, q db.DBTX, slotKey string) error {
	return db.LockSlot(ctx, q, slotKey)
}

// HasApprovedInSlot reports whether a live approved appointment holds the exact slot.
func (r *Repository) HasApprovedInSlot(ctx context.Context, q db.DBTX, employeeID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE employee_id = $1
			AND scheduled_date = $2
			AND scheduled_time = $3
			AND status = 'approved'
			AND NOT is_deleted
			AND ($4::uuid IS NULL OR id <> $4)
	)`

	var exists bool
	if err := q.QueryRow(ctx, query, employeeID, date, clock, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slot conflict: %w", err)
	}
	return exists, nil
}

// SetDeleted soft-deletes (deleted=true) or restores (deleted=false) an appointment.
// Deleting a deleted row or restoring a live one is NotFound.
func (r *Repository) SetDeleted(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID, deleted bool, by *uuid.UUID) error {
	query := `
		UPDATE appointments SET
			is_deleted = $3,
			deleted_at = CASE WHEN $3 THEN now() ELSE NULL END,
			deleted_by = CASE WHEN $3 THEN $4::uuid ELSE NULL END,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND is_deleted = NOT $3`

	result, err := q.Exec(ctx, query, id, tenantID, deleted, by)
	if err != nil {
		return fmt.Errorf("failed to change appointment deletion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(domain.MsgAppointmentNotFound)
	}
	return nil
}

// GetView returns an appointment with its visitor and employee.
func (r *Repository) GetView(ctx context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*domain.View, error) {
	query := `SELECT ` + viewColumns + ` ` + viewJoins + `
		WHERE a.id = $1 AND a.tenant_id = $2 AND ($3 OR NOT a.is_deleted)`

	view, err := scanView(r.pool.QueryRow(ctx, query, id, tenantID, includeDeleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(domain.MsgAppointmentNotFound)
		}
		return nil, fmt.Errorf("failed to get appointment view: %w", err)
	}
	return view, nil
}

// AdminAccountID returns the account that owns the tenant.
func (r *Repository) AdminAccountID(ctx context.Context, q db.DBTX, tenantID uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT admin_account_id FROM tenants WHERE id = $1`, tenantID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant admin: %w", err)
	}
	return &id, nil
}

// UpdateDeliveryFlags writes only the flags that are set.
func (r *Repository) UpdateDeliveryFlags(ctx context.Context, tenantID, id uuid.UUID, flags domain.DeliveryFlags) error {
	if flags.Empty() {
		return nil
	}

	query := `
		UPDATE appointments SET
			email_sent = COALESCE($3, email_sent),
			whatsapp_sent = COALESCE($4, whatsapp_sent),
			sms_sent = COALESCE($5, sms_sent),
			reminder_sent = COALESCE($6, reminder_sent),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2`

	_, err := r.pool.Exec(ctx, query, id, tenantID, flags.Email, flags.WhatsApp, flags.SMS, flags.Reminder)
	if err != nil {
		return fmt.Errorf("failed to update delivery flags: %w", err)
	}
	return nil
}

// ListParams contains parameters for listing appointments
type ListParams struct {
	TenantID       uuid.UUID
	EmployeeID     *uuid.UUID
	VisitorID      *uuid.UUID
	Status         *string
	DateFrom       *time.Time // inclusive
	DateTo         *time.Time // exclusive
	Search         string
	IncludeDeleted bool
	SortBy         string
	SortOrder      string
	Page           int
	Limit          int
}

// ListResult contains the result of listing appointments
type ListResult struct {
	Items      []domain.View
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// List retrieves appointments with optional filtering
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	baseQuery := viewJoins + ` WHERE a.tenant_id = $1`
	args := []interface{}{params.TenantID}
	argIndex := 2

	if !params.IncludeDeleted {
		baseQuery += " AND NOT a.is_deleted"
	}
	addFilter(&baseQuery, &args, &argIndex, params.EmployeeID != nil, " AND a.employee_id = $%d", derefUUID(params.EmployeeID))
	addFilter(&baseQuery, &args, &argIndex, params.VisitorID != nil, " AND a.visitor_id = $%d", derefUUID(params.VisitorID))
	addFilter(&baseQuery, &args, &argIndex, params.Status != nil, " AND a.status = $%d", derefString(params.Status))
	addFilter(&baseQuery, &args, &argIndex, params.DateFrom != nil, " AND a.scheduled_date >= $%d", derefTime(params.DateFrom))
	addFilter(&baseQuery, &args, &argIndex, params.DateTo != nil, " AND a.scheduled_date < $%d", derefTime(params.DateTo))
	if params.Search != "" {
		baseQuery += fmt.Sprintf(` AND (
			v.name ILIKE $%[1]d OR v.phone ILIKE $%[1]d OR v.email ILIKE $%[1]d
			OR e.name ILIKE $%[1]d OR e.department ILIKE $%[1]d
			OR a.purpose ILIKE $%[1]d OR COALESCE(a.notes, '') ILIKE $%[1]d)`, argIndex)
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIndex++
	}

	var total int
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	offset := (params.Page - 1) * params.Limit

	orderBy, sortDir, err := resolveSort(params.SortBy, params.SortOrder)
	if err != nil {
		return nil, err
	}

	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, a.id LIMIT $%d OFFSET $%d`,
		viewColumns, baseQuery, orderBy, sortDir, argIndex, argIndex+1)
	args = append(args, params.Limit, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.View, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		items = append(items, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}, nil
}

// Calendar returns live appointments in [from, to) ordered by date and time.
func (r *Repository) Calendar(ctx context.Context, tenantID uuid.UUID, from, to time.Time, employeeID *uuid.UUID) ([]domain.View, error) {
	query := `SELECT ` + viewColumns + ` ` + viewJoins + `
		WHERE a.tenant_id = $1 AND NOT a.is_deleted
			AND a.scheduled_date >= $2 AND a.scheduled_date < $3
			AND ($4::uuid IS NULL OR a.employee_id = $4)
		ORDER BY a.scheduled_date ASC, a.scheduled_time ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, from, to, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	defer rows.Close()

	items := make([]domain.View, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		items = append(items, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calendar: %w", err)
	}
	return items, nil
}

// Stats aggregates live appointments, optionally bounded to [from, to).
func (r *Repository) Stats(ctx context.Context, tenantID uuid.UUID, from, to *time.Time, today time.Time, employeeID *uuid.UUID) (domain.Stats, error) {
	query := `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE scheduled_date = $4),
			COUNT(*) FILTER (WHERE check_in_time IS NOT NULL AND check_out_time IS NULL),
			COALESCE(AVG(actual_duration), 0)::float8
		FROM appointments
		WHERE tenant_id = $1 AND NOT is_deleted
			AND ($2::date IS NULL OR scheduled_date >= $2)
			AND ($3::date IS NULL OR scheduled_date < $3)
			AND ($5::uuid IS NULL OR employee_id = $5)`

	var s domain.Stats
	err := r.pool.QueryRow(ctx, query, tenantID, from, to, today, employeeID).Scan(
		&s.Total, &s.Pending, &s.Approved, &s.Rejected, &s.Completed, &s.Today, &s.CheckedIn, &s.AvgDurationMinutes,
	)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to compute appointment stats: %w", err)
	}
	return s, nil
}

var sortColumns = map[string]string{
	"createdAt":     "a.created_at",
	"updatedAt":     "a.updated_at",
	"scheduledDate": "a.scheduled_date",
	"scheduledTime": "a.scheduled_time",
	"status":        "a.status",
	"purpose":       "a.purpose",
	"visitorName":   "v.name",
	"employeeName":  "e.name",
}

func resolveSort(sortBy, sortOrder string) (string, string, error) {
	orderBy := "a.created_at"
	if sortBy != "" {
		col, ok := sortColumns[sortBy]
		if !ok {
			return "", "", apperr.BadRequest("invalid sort field")
		}
		orderBy = col
	}

	switch sortOrder {
	case "", "desc":
		return orderBy, "DESC", nil
	case "asc":
		return orderBy, "ASC", nil
	default:
		return "", "", apperr.BadRequest("invalid sort order")
	}
}

func addFilter(baseQuery *string, args *[]interface{}, argIndex *int, apply bool, clause string, value interface{}) {
	if !apply {
		return
	}
	*baseQuery += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}

func escapeLike(value string) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func derefUUID(value *uuid.UUID) uuid.UUID {
	if value == nil {
		return uuid.UUID{}
	}
	return *value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
