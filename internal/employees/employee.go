// Package employees is the tenant's employee directory. Employees host appointments; an
// employee linked to an account can sign in and manage their own appointments.
package employees

import (
	"time"

	"github.com/google/uuid"
)

// Status is the availability of an employee for new appointments.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Employee is a directory entry.
type Employee struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	AccountID   *uuid.UUID
	Name        string
	Email       string
	Phone       string
	Department  string
	Designation string
	Status      Status
	IsDeleted   bool
	DeletedAt   *time.Time
	DeletedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether the employee can receive new appointments.
func (e Employee) Active() bool {
	return e.Status == StatusActive && !e.IsDeleted
}

const (
	msgNotFound       = "Employee not found"
	msgDuplicateEmail = "An employee with this email already exists"
)
