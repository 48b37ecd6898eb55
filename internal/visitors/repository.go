package visitors

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

const visitorColumns = `id, tenant_id, name, email, phone, company, id_type, id_number, photo_key,
	is_deleted, deleted_at, deleted_by, created_at, updated_at`

// Repository stores visitors in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new visitor repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) conn(q db.DBTX) db.DBTX {
	if q == nil {
		return r.pool
	}
	return q
}

func scanVisitor(row pgx.Row) (*Visitor, error) {
	var v Visitor
	err := row.Scan(&v.ID, &v.TenantID, &v.Name, &v.Email, &v.Phone, &v.Company, &v.IDType, &v.IDNumber,
		&v.PhotoKey, &v.IsDeleted, &v.DeletedAt, &v.DeletedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByID returns a live visitor or nil.
func (r *Repository) FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*Visitor, error) {
	v, err := scanVisitor(r.conn(q).QueryRow(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find visitor: %w", err)
	}
	return v, nil
}

// FindByContact returns the oldest live visitor whose phone and email both equal the given ones.
func (r *Repository) FindByContact(ctx context.Context, q db.DBTX, tenantID uuid.UUID, phone, email string) (*Visitor, error) {
	v, err := scanVisitor(r.conn(q).QueryRow(ctx,
		`SELECT `+visitorColumns+` FROM visitors
		 WHERE tenant_id = $1 AND NOT is_deleted
			AND phone = $2 AND lower(email) = $3
		 ORDER BY created_at ASC
		 LIMIT 1`, tenantID, phone, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find visitor by contact: %w", err)
	}
	return v, nil
}

func (r *Repository) Create(ctx context.Context, q db.DBTX, v *Visitor) error {
	err := r.conn(q).QueryRow(ctx,
		`INSERT INTO visitors (id, tenant_id, name, email, phone, company, id_type, id_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		v.ID, v.TenantID, v.Name, v.Email, v.Phone, v.Company, v.IDType, v.IDNumber,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create visitor: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, v *Visitor) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE visitors
		 SET name = $3, email = $4, phone = $5, company = $6, id_type = $7, id_number = $8,
			photo_key = $9, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted
		 RETURNING updated_at`,
		v.ID, v.TenantID, v.Name, v.Email, v.Phone, v.Company, v.IDType, v.IDNumber, v.PhotoKey,
	).Scan(&v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update visitor: %w", err)
	}
	return nil
}

func (r *Repository) SoftDelete(ctx context.Context, tenantID, id uuid.UUID, by *uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE visitors SET is_deleted = true, deleted_at = now(), deleted_by = $3, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted`, id, tenantID, by)
	if err != nil {
		return fmt.Errorf("failed to delete visitor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(msgNotFound)
	}
	return nil
}

// ListParams filters the visitor list.
type ListParams struct {
	TenantID uuid.UUID
	Search   string
	Page     int
	Limit    int
}

// ListResult is a page of visitors.
type ListResult struct {
	Items      []Visitor
	Total      int
	Page       int
	TotalPages int
}

func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	filter := ` FROM visitors WHERE tenant_id = $1 AND NOT is_deleted`
	args := []any{params.TenantID}
	if params.Search != "" {
		args = append(args, "%"+escapeLike(params.Search)+"%")
		filter += ` AND (name ILIKE $2 OR phone ILIKE $2 OR email ILIKE $2 OR company ILIKE $2)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+filter, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count visitors: %w", err)
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", visitorColumns, filter, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	defer rows.Close()

	items := make([]Visitor, 0)
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visitor: %w", err)
		}
		items = append(items, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visitors: %w", err)
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
