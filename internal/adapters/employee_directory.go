package adapters

import (
	"context"

	"visitor_backend/internal/appointments/domain"
	apptsvc "visitor_backend/internal/appointments/service"
	"visitor_backend/internal/employees"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
)

// EmployeeReader is the narrow slice of the employee repository the directory needs.
type EmployeeReader interface {
	FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*employees.Employee, error)
	FindByAccount(ctx context.Context, q db.DBTX, tenantID, accountID uuid.UUID) (*employees.Employee, error)
}

// EmployeeDirectory implements appointments/service.EmployeeDirectory on top of the employees module.
type EmployeeDirectory struct {
	repo EmployeeReader
}

// NewEmployeeDirectory creates a new adapter.
func NewEmployeeDirectory(repo EmployeeReader) *EmployeeDirectory {
	return &EmployeeDirectory{repo: repo}
}

func (d *EmployeeDirectory) FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*domain.EmployeeRef, error) {
	e, err := d.repo.FindByID(ctx, q, tenantID, id)
	if err != nil || e == nil {
		return nil, err
	}
	return employeeRef(e), nil
}

func (d *EmployeeDirectory) FindByAccount(ctx context.Context, q db.DBTX, tenantID, accountID uuid.UUID) (*domain.EmployeeRef, error) {
	e, err := d.repo.FindByAccount(ctx, q, tenantID, accountID)
	if err != nil || e == nil {
		return nil, err
	}
	return employeeRef(e), nil
}

func employeeRef(e *employees.Employee) *domain.EmployeeRef {
	return &domain.EmployeeRef{
		ID:         e.ID,
		AccountID:  e.AccountID,
		Name:       e.Name,
		Email:      e.Email,
		Phone:      e.Phone,
		Department: e.Department,
		Active:     e.Active(),
		IsDeleted:  e.IsDeleted,
	}
}

// Compile-time check.
var _ apptsvc.EmployeeDirectory = (*EmployeeDirectory)(nil)
