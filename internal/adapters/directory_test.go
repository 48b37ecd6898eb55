package adapters

import (
	"context"
	"testing"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/employees"
	"visitor_backend/internal/visitors"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
)

type stubEmployees struct {
	byID *employees.Employee
}

func (s stubEmployees) FindByID(context.Context, db.DBTX, uuid.UUID, uuid.UUID) (*employees.Employee, error) {
	return s.byID, nil
}

func (s stubEmployees) FindByAccount(context.Context, db.DBTX, uuid.UUID, uuid.UUID) (*employees.Employee, error) {
	return nil, nil
}

type stubVisitors struct {
	contact visitors.Contact
}

func (s *stubVisitors) FindByID(context.Context, db.DBTX, uuid.UUID, uuid.UUID) (*visitors.Visitor, error) {
	return nil, nil
}

func (s *stubVisitors) FindOrCreate(_ context.Context, _ db.DBTX, tenantID uuid.UUID, contact visitors.Contact) (*visitors.Visitor, error) {
	s.contact = contact
	return &visitors.Visitor{ID: uuid.New(), TenantID: tenantID, Name: contact.Name, Phone: contact.Phone}, nil
}

func TestEmployeeDirectoryMapsStatus(t *testing.T) {
	accountID := uuid.New()
	dir := NewEmployeeDirectory(stubEmployees{byID: &employees.Employee{
		ID:        uuid.New(),
		AccountID: &accountID,
		Name:      "Sanne",
		Status:    employees.StatusInactive,
	}})

	ref, err := dir.FindByID(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Active || ref.AccountID == nil || *ref.AccountID != accountID {
		t.Fatalf("unexpected ref %+v", ref)
	}

	missing, err := dir.FindByAccount(context.Background(), nil, uuid.New(), accountID)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for an unknown account, got %+v %v", missing, err)
	}
}

func TestVisitorDirectoryPassesContact(t *testing.T) {
	stub := &stubVisitors{}
	dir := NewVisitorDirectory(stub, stub)

	ref, err := dir.FindOrCreate(context.Background(), nil, uuid.New(), domain.VisitorRef{Name: "Ahmed", Phone: "+31612345678", Company: "Acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.contact.Company != "Acme" || ref.Name != "Ahmed" {
		t.Fatalf("unexpected mapping: contact=%+v ref=%+v", stub.contact, ref)
	}

	none, err := dir.FindByID(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil || none != nil {
		t.Fatalf("expected nil for an unknown visitor")
	}
}
