package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultRangeDays = 30
	defaultLimit     = 5000
	maxLimit         = 50000
	timestampLayout  = "2006-01-02 15:04"
)

// VisitLister reads the visitor log.
type VisitLister interface {
	ListVisits(ctx context.Context, tenantID uuid.UUID, from, to time.Time, limit int) ([]Visit, error)
}

type Handler struct {
	repo     VisitLister
	location *time.Location
	now      func() time.Time
}

// NewHandler creates the export handler. loc renders check-in and check-out times.
func NewHandler(repo VisitLister, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{repo: repo, location: loc, now: time.Now}
}

// ExportVisitsCSV streams the visitor log for a date range.
func (h *Handler) ExportVisitsCSV(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	fromDate, toDate, err := parseDateRange(c, h.now().In(h.location))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	limit := parseLimit(c, defaultLimit, maxLimit)

	visits, err := h.repo.ListVisits(c.Request.Context(), tenantID, fromDate, toDate, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	filename := fmt.Sprintf("visitor-log-%s-%s.csv", fromDate.Format(domain.DateLayout), toDate.Format(domain.DateLayout))
	writer, ok := startCsvResponse(c, filename)
	if !ok {
		return
	}
	for _, v := range visits {
		if err := writer.Write(visitRow(v, h.location)); err != nil {
			return
		}
	}
	writer.Flush()
}

// ---- Helpers ----

func csvHeaders() []string {
	return []string{
		"Date",
		"Time",
		"Visitor",
		"Company",
		"Phone",
		"Host",
		"Department",
		"Purpose",
		"Status",
		"Check-in",
		"Check-out",
		"Duration (min)",
		"Badge",
	}
}

func visitRow(v Visit, loc *time.Location) []string {
	return []string{
		v.ScheduledDate.Format(domain.DateLayout),
		v.ScheduledTime,
		v.VisitorName,
		v.VisitorCompany,
		v.VisitorPhone,
		v.EmployeeName,
		v.Department,
		v.Purpose,
		v.Status,
		formatTimestamp(v.CheckInTime, loc),
		formatTimestamp(v.CheckOutTime, loc),
		formatInt(v.ActualDuration),
		deref(v.BadgeNumber),
	}
}

func startCsvResponse(c *gin.Context, filename string) (*csv.Writer, bool) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(csvHeaders()); err != nil {
		return nil, false
	}
	return writer, true
}

func parseDateRange(c *gin.Context, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -defaultRangeDays)
	to := today

	if raw := strings.TrimSpace(c.Query("fromDate")); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("toDate")); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("toDate before fromDate")
	}
	return from, to, nil
}

func parseLimit(c *gin.Context, fallback int, max int) int {
	limit := fallback
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit > max {
		return max
	}
	if limit < 1 {
		return fallback
	}
	return limit
}

func formatTimestamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(timestampLayout)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
