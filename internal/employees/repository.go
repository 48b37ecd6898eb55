package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	employeeColumns = `id, tenant_id, account_id, name, email, phone, department, designation, status,
	is_deleted, deleted_at, deleted_by, created_at, updated_at`
	emailConstraint = "employees_tenant_email_key"
)

// Repository stores employees in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new employee repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) conn(q db.DBTX) db.DBTX {
	if q == nil {
		return r.pool
	}
	return q
}

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	var status string
	err := row.Scan(&e.ID, &e.TenantID, &e.AccountID, &e.Name, &e.Email, &e.Phone, &e.Department,
		&e.Designation, &status, &e.IsDeleted, &e.DeletedAt, &e.DeletedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = Status(status)
	return &e, nil
}

// FindByID returns the employee or nil when it does not exist in the tenant.
// Soft-deleted employees are returned so callers can tell them apart.
func (r *Repository) FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*Employee, error) {
	e, err := scanEmployee(r.conn(q).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return e, nil
}

// FindByAccount returns the live employee record linked to an account, or nil.
func (r *Repository) FindByAccount(ctx context.Context, q db.DBTX, tenantID, accountID uuid.UUID) (*Employee, error) {
	e, err := scanEmployee(r.conn(q).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees
		 WHERE account_id = $1 AND tenant_id = $2 AND NOT is_deleted
		 ORDER BY created_at LIMIT 1`, accountID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee by account: %w", err)
	}
	return e, nil
}

func (r *Repository) Create(ctx context.Context, e *Employee) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employees (id, tenant_id, account_id, name, email, phone, department, designation, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		e.ID, e.TenantID, e.AccountID, e.Name, e.Email, e.Phone, e.Department, e.Designation, string(e.Status),
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if db.IsUniqueViolation(err, emailConstraint) {
		return apperr.Conflict(msgDuplicateEmail)
	}
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, e *Employee) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE employees
		 SET account_id = $3, name = $4, email = $5, phone = $6, department = $7, designation = $8,
			status = $9, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted
		 RETURNING updated_at`,
		e.ID, e.TenantID, e.AccountID, e.Name, e.Email, e.Phone, e.Department, e.Designation, string(e.Status),
	).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(msgNotFound)
	}
	if db.IsUniqueViolation(err, emailConstraint) {
		return apperr.Conflict(msgDuplicateEmail)
	}
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return nil
}

// SoftDelete hides a live employee. Their appointments are kept.
func (r *Repository) SoftDelete(ctx context.Context, tenantID, id uuid.UUID, by *uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE employees SET is_deleted = true, deleted_at = now(), deleted_by = $3, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted`, id, tenantID, by)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(msgNotFound)
	}
	return nil
}

// ListParams filters the employee list.
type ListParams struct {
	TenantID       uuid.UUID
	Search         string
	Department     string
	Status         *Status
	IncludeDeleted bool
	Page           int
	Limit          int
}

// ListResult is a page of employees.
type ListResult struct {
	Items      []Employee
	Total      int
	Page       int
	TotalPages int
}

func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	where := []string{"tenant_id = $1"}
	args := []any{params.TenantID}

	if !params.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if params.Status != nil {
		args = append(args, string(*params.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Department != "" {
		args = append(args, params.Department)
		where = append(where, fmt.Sprintf("department = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+escapeLike(params.Search)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%[1]d OR email ILIKE $%[1]d OR department ILIKE $%[1]d)", len(args)))
	}
	filter := " FROM employees WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+filter, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count employees: %w", err)
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s%s ORDER BY name ASC, id LIMIT $%d OFFSET $%d", employeeColumns, filter, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	items := make([]Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		TotalPages: (total + params.Limit - 1) / params.Limit,
	}, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
