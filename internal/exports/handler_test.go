package exports

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"visitor_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLister struct {
	tenantID uuid.UUID
	from, to time.Time
	limit    int
	visits   []Visit
}

func (f *fakeLister) ListVisits(_ context.Context, tenantID uuid.UUID, from, to time.Time, limit int) ([]Visit, error) {
	f.tenantID, f.from, f.to, f.limit = tenantID, from, to, limit
	return f.visits, nil
}

func newRouter(h *Handler, tenantID uuid.UUID) *gin.Engine {
	router := gin.New()
	router.GET("/export", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextTenantIDKey, tenantID)
	}, h.ExportVisitsCSV)
	return router
}

func TestExportVisitsCSV(t *testing.T) {
	checkIn := time.Date(2026, 3, 9, 8, 58, 0, 0, time.UTC)
	duration := 62
	badge := "B-17"
	lister := &fakeLister{visits: []Visit{{
		ScheduledDate:  time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		ScheduledTime:  "09:00",
		VisitorName:    "Lotte",
		VisitorCompany: "Acme, Inc.",
		EmployeeName:   "Sanne",
		Purpose:        "Contract review",
		Status:         "completed",
		CheckInTime:    &checkIn,
		ActualDuration: &duration,
		BadgeNumber:    &badge,
	}}}
	loc, _ := time.LoadLocation("Europe/Amsterdam")
	tenantID := uuid.New()
	router := newRouter(NewHandler(lister, loc), tenantID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?fromDate=2026-03-01&toDate=2026-03-31&limit=999999", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if lister.tenantID != tenantID || lister.limit != maxLimit {
		t.Fatalf("unexpected query tenant=%s limit=%d", lister.tenantID, lister.limit)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "visitor-log-2026-03-01-2026-03-31.csv") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(records))
	}
	row := records[1]
	if row[3] != "Acme, Inc." || row[9] != "2026-03-09 09:58" || row[10] != "" || row[11] != "62" || row[12] != "B-17" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestExportDefaultsAndValidation(t *testing.T) {
	lister := &fakeLister{}
	h := NewHandler(lister, time.UTC)
	h.now = func() time.Time { return time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC) }
	router := newRouter(h, uuid.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !lister.from.Equal(want) {
		t.Fatalf("expected default from %s, got %s", want, lister.from)
	}
	if lister.limit != defaultLimit {
		t.Fatalf("expected default limit, got %d", lister.limit)
	}

	for _, query := range []string{"?fromDate=03/01/2026", "?fromDate=2026-03-10&toDate=2026-03-01"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}
