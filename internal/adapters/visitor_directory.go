package adapters

import (
	"context"

	"visitor_backend/internal/appointments/domain"
	apptsvc "visitor_backend/internal/appointments/service"
	"visitor_backend/internal/visitors"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
)

// VisitorReader looks up live visitors.
type VisitorReader interface {
	FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*visitors.Visitor, error)
}

// VisitorRegistrar finds or registers a visitor from self-booking contact details.
type VisitorRegistrar interface {
	FindOrCreate(ctx context.Context, q db.DBTX, tenantID uuid.UUID, contact visitors.Contact) (*visitors.Visitor, error)
}

// VisitorDirectory implements appointments/service.VisitorDirectory on top of the visitors module.
type VisitorDirectory struct {
	reader    VisitorReader
	registrar VisitorRegistrar
}

// NewVisitorDirectory creates a new adapter.
func NewVisitorDirectory(reader VisitorReader, registrar VisitorRegistrar) *VisitorDirectory {
	return &VisitorDirectory{reader: reader, registrar: registrar}
}

func (d *VisitorDirectory) FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*domain.VisitorRef, error) {
	v, err := d.reader.FindByID(ctx, q, tenantID, id)
	if err != nil || v == nil {
		return nil, err
	}
	return visitorRef(v), nil
}

func (d *VisitorDirectory) FindOrCreate(ctx context.Context, q db.DBTX, tenantID uuid.UUID, visitor domain.VisitorRef) (*domain.VisitorRef, error) {
	v, err := d.registrar.FindOrCreate(ctx, q, tenantID, visitors.Contact{
		Name:    visitor.Name,
		Email:   visitor.Email,
		Phone:   visitor.Phone,
		Company: visitor.Company,
	})
	if err != nil {
		return nil, err
	}
	return visitorRef(v), nil
}

func visitorRef(v *visitors.Visitor) *domain.VisitorRef {
	return &domain.VisitorRef{
		ID:      v.ID,
		Name:    v.Name,
		Email:   v.Email,
		Phone:   v.Phone,
		Company: v.Company,
	}
}

// Compile-time check.
var _ apptsvc.VisitorDirectory = (*VisitorDirectory)(nil)
