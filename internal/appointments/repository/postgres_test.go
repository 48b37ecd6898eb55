package repository

import (
	"context"
	"testing"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/platform/db/dbtest"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type seed struct {
	pool     *pgxpool.Pool
	repo     *Repository
	tenantID uuid.UUID
	employee uuid.UUID
	visitor  uuid.UUID
}

func newSeed(t *testing.T) *seed {
	t.Helper()
	pool := dbtest.Open(t)
	tenantID := dbtest.Tenant(t, pool)
	return &seed{
		pool:     pool,
		repo:     New(pool),
		tenantID: tenantID,
		employee: dbtest.Employee(t, pool, tenantID, "Eva Jansen"),
		visitor:  dbtest.Visitor(t, pool, tenantID, "Tom de Vries", "+31612345678"),
	}
}

func (s *seed) appointment(t *testing.T, visitorID uuid.UUID, date time.Time, clock string, status domain.Status, purpose string) *domain.Appointment {
	t.Helper()
	appt := &domain.Appointment{
		ID:            uuid.New(),
		TenantID:      s.tenantID,
		EmployeeID:    s.employee,
		VisitorID:     visitorID,
		Purpose:       purpose,
		ScheduledDate: date,
		ScheduledTime: clock,
		Duration:      60,
		Status:        status,
	}
	if err := s.repo.Create(context.Background(), s.pool, appt); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}

func TestHasApprovedInSlotOnPostgres(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	s.appointment(t, s.visitor, day, "10:00", domain.StatusPending, "Intake")
	s.appointment(t, s.visitor, day, "10:30", domain.StatusRejected, "Intake")
	deleted := s.appointment(t, s.visitor, day, "11:00", domain.StatusApproved, "Intake")
	if err := s.repo.SetDeleted(ctx, s.pool, s.tenantID, deleted.ID, true, nil); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	held := s.appointment(t, s.visitor, day, "12:00", domain.StatusApproved, "Intake")

	other := dbtest.Employee(t, s.pool, s.tenantID, "Sanne")
	tests := []struct {
		name     string
		employee uuid.UUID
		date     time.Time
		clock    string
		exclude  *uuid.UUID
		want     bool
	}{
		{"pending does not block", s.employee, day, "10:00", nil, false},
		{"rejected does not block", s.employee, day, "10:30", nil, false},
		{"deleted approved does not block", s.employee, day, "11:00", nil, false},
		{"approved blocks", s.employee, day, "12:00", nil, true},
		{"own record is excluded", s.employee, day, "12:00", &held.ID, false},
		{"other day is free", s.employee, day.AddDate(0, 0, 1), "12:00", nil, false},
		{"other employee is free", other, day, "12:00", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.repo.HasApprovedInSlot(ctx, s.pool, tt.employee, tt.date, tt.clock, tt.exclude)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestListSearchTreatsWildcardsLiterally(t *testing.T) {
	s := newSeed(t)
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	percent := s.appointment(t, s.visitor, day, "09:00", domain.StatusPending, "Discuss 100% uptime")
	s.appointment(t, s.visitor, day, "09:30", domain.StatusPending, "Discuss 1000 units")
	underscore := s.appointment(t, dbtest.Visitor(t, s.pool, s.tenantID, "an_na", "+31611111111"), day, "10:00", domain.StatusPending, "Intake")
	s.appointment(t, dbtest.Visitor(t, s.pool, s.tenantID, "anxna", "+31622222222"), day, "10:30", domain.StatusPending, "Intake")

	tests := []struct {
		search string
		want   uuid.UUID
	}{
		{"100%", percent.ID},
		{"AN_NA", underscore.ID},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			result, err := s.repo.List(context.Background(), ListParams{TenantID: s.tenantID, Search: tt.search, Page: 1, Limit: 10})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Total != 1 || len(result.Items) != 1 || result.Items[0].ID != tt.want {
				t.Fatalf("expected only %s, got total=%d items=%d", tt.want, result.Total, len(result.Items))
			}
		})
	}
}

func TestListSortsAndScopesToTenant(t *testing.T) {
	s := newSeed(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	late := s.appointment(t, s.visitor, day, "15:00", domain.StatusPending, "Late")
	early := s.appointment(t, s.visitor, day.AddDate(0, 0, -1), "08:00", domain.StatusPending, "Early")

	foreign := newSeed(t)
	foreign.appointment(t, foreign.visitor, day, "09:00", domain.StatusPending, "Elsewhere")

	result, err := s.repo.List(context.Background(), ListParams{TenantID: s.tenantID, SortBy: "scheduledDate", SortOrder: "asc", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || result.Items[0].ID != early.ID || result.Items[1].ID != late.ID {
		t.Fatalf("unexpected order or scope: total=%d", result.Total)
	}
	if result.Items[0].Visitor.Name != "Tom de Vries" || result.Items[0].Employee.Name != "Eva Jansen" {
		t.Fatalf("expected joined parties, got %+v %+v", result.Items[0].Visitor, result.Items[0].Employee)
	}
}
