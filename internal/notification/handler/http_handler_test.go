package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"visitor_backend/internal/notification/inapp"
	"visitor_backend/platform/apperr"
	"visitor_backend/platform/httpkit"
	"visitor_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	tenantID uuid.UUID
	userID   uuid.UUID
	marked   uuid.UUID
}

func (f *fakeStore) Create(context.Context, inapp.CreateParams) (inapp.Notification, error) {
	return inapp.Notification{}, nil
}

func (f *fakeStore) List(_ context.Context, tenantID, userID uuid.UUID, _, _ int) ([]inapp.Notification, int, error) {
	f.tenantID, f.userID = tenantID, userID
	return []inapp.Notification{{ID: uuid.New(), Title: "New appointment"}}, 1, nil
}

func (f *fakeStore) CountUnread(_ context.Context, tenantID, userID uuid.UUID) (int, error) {
	f.tenantID, f.userID = tenantID, userID
	return 2, nil
}

func (f *fakeStore) MarkRead(_ context.Context, _, _ uuid.UUID, id uuid.UUID) error {
	f.marked = id
	if id == uuid.Nil {
		return apperr.BadRequest("invalid notification id")
	}
	return nil
}

func (f *fakeStore) MarkAllRead(context.Context, uuid.UUID, uuid.UUID) (int64, error) { return 2, nil }

func newRouter(store *fakeStore, tenantID *uuid.UUID, accountID uuid.UUID) *gin.Engine {
	h := NewHTTPHandler(inapp.NewService(store, logger.NewNop()))
	router := gin.New()
	h.RegisterRoutes(router.Group("/notifications", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, accountID)
		c.Set(httpkit.ContextRolesKey, []string{httpkit.RoleEmployee})
		if tenantID != nil {
			c.Set(httpkit.ContextTenantIDKey, *tenantID)
		}
	}))
	return router
}

func TestInboxIsScopedToCaller(t *testing.T) {
	store := &fakeStore{}
	tenantID, accountID := uuid.New(), uuid.New()
	router := newRouter(store, &tenantID, accountID)

	for _, path := range []string{"/notifications", "/notifications/unread-count"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if store.tenantID != tenantID || store.userID != accountID {
			t.Fatalf("%s: expected the caller's tenant and account", path)
		}
	}
}

func TestMarkRead(t *testing.T) {
	store := &fakeStore{}
	tenantID := uuid.New()
	router := newRouter(store, &tenantID, uuid.New())

	id := uuid.New()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/notifications/"+id.String()+"/read", nil))
	if rec.Code != http.StatusOK || store.marked != id {
		t.Fatalf("expected notification %s to be marked, got code=%d marked=%s", id, rec.Code, store.marked)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/notifications/not-a-uuid/read", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/notifications/read-all", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for read-all, got %d", rec.Code)
	}
}

func TestInboxRequiresTenant(t *testing.T) {
	router := newRouter(&fakeStore{}, nil, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without a tenant, got %d", rec.Code)
	}
}
