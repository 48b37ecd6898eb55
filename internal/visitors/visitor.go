// Package visitors is the tenant's visitor register.
package visitors

import (
	"time"

	"github.com/google/uuid"
)

// Visitor is a person who visits the tenant's employees.
type Visitor struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Email     string
	Phone     string
	Company   string
	IDType    string
	IDNumber  string
	PhotoKey  *string
	IsDeleted bool
	DeletedAt *time.Time
	DeletedBy *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	msgNotFound     = "Visitor not found"
	msgInvalidPhone = "phone is not a valid phone number"
)
