package inapp

import (
	"context"
	"errors"
	"testing"

	"visitor_backend/platform/apperr"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	created   []CreateParams
	createErr error
	limit     int
	offset    int
}

func (f *fakeStore) Create(_ context.Context, p CreateParams) (Notification, error) {
	if f.createErr != nil {
		return Notification{}, f.createErr
	}
	f.created = append(f.created, p)
	return Notification{ID: uuid.New(), UserID: p.UserID, Title: p.Title}, nil
}

func (f *fakeStore) List(_ context.Context, _, _ uuid.UUID, limit, offset int) ([]Notification, int, error) {
	f.limit, f.offset = limit, offset
	return []Notification{}, 42, nil
}

func (f *fakeStore) CountUnread(context.Context, uuid.UUID, uuid.UUID) (int, error) { return 3, nil }

func (f *fakeStore) MarkRead(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeStore) MarkAllRead(context.Context, uuid.UUID, uuid.UUID) (int64, error) { return 3, nil }

func TestRecordSwallowsFailures(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	svc := NewService(store, logger.NewNop())

	svc.Record(context.Background(), RecordParams{TenantID: uuid.New(), UserID: uuid.New(), Title: "New appointment", Message: "Lotte at 10:00"})

	var nilSvc *Service
	nilSvc.Record(context.Background(), RecordParams{})
}

func TestRecordPassesFields(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, logger.NewNop())
	apptID := uuid.New()

	svc.Record(context.Background(), RecordParams{
		TenantID:      uuid.New(),
		UserID:        uuid.New(),
		Type:          "appointment",
		Title:         "Appointment approved",
		Message:       "Lotte on 2026-03-09 at 10:00",
		AppointmentID: &apptID,
		Metadata:      map[string]any{"status": "approved"},
	})

	if len(store.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(store.created))
	}
	got := store.created[0]
	if got.Type != "appointment" || got.AppointmentID == nil || *got.AppointmentID != apptID || got.Metadata["status"] != "approved" {
		t.Fatalf("unexpected params %+v", got)
	}
}

func TestListClampsPaging(t *testing.T) {
	tests := []struct {
		page, size         int
		wantLimit, wantOff int
	}{
		{0, 0, defaultPageSize, 0},
		{3, 10, 10, 20},
		{1, 500, maxPageSize, 0},
	}

	for _, tt := range tests {
		store := &fakeStore{}
		svc := NewService(store, logger.NewNop())
		page, err := svc.List(context.Background(), uuid.New(), uuid.New(), tt.page, tt.size)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.limit != tt.wantLimit || store.offset != tt.wantOff {
			t.Fatalf("page=%d size=%d: got limit=%d offset=%d", tt.page, tt.size, store.limit, store.offset)
		}
		if page.Total != 42 || page.PageSize != tt.wantLimit {
			t.Fatalf("unexpected page %+v", page)
		}
	}
}

func TestMarkReadRequiresID(t *testing.T) {
	svc := NewService(&fakeStore{}, logger.NewNop())
	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New(), uuid.Nil)
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}
