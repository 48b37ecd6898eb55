package service

import (
	"context"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/appointments/repository"
	"visitor_backend/internal/appointments/transport"
	"visitor_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	// maxCalendarSpan bounds calendar queries.
	maxCalendarSpan = 93 * 24 * time.Hour
)

// Get returns one appointment with its visitor and employee.
func (s *Service) Get(ctx context.Context, caller domain.Caller, id uuid.UUID, includeDeleted bool) (*transport.AppointmentResponse, error) {
	view, err := s.repo.GetView(ctx, caller.TenantID, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, nil, caller, view.EmployeeID); err != nil {
		return nil, err
	}
	resp := transport.ToViewResponse(*view)
	return &resp, nil
}

// List returns a filtered page of appointments. Search uses the same filters from a body.
func (s *Service) List(ctx context.Context, caller domain.Caller, req transport.ListAppointmentsRequest) (*transport.AppointmentListResponse, error) {
	params, err := s.listParams(ctx, caller, req)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	return &transport.AppointmentListResponse{
		Items:       transport.ToViewResponses(result.Items),
		CurrentPage: result.Page,
		TotalPages:  result.TotalPages,
		TotalCount:  result.Total,
		HasNextPage: result.Page < result.TotalPages,
		HasPrevPage: result.Page > 1,
	}, nil
}

func (s *Service) listParams(ctx context.Context, caller domain.Caller, req transport.ListAppointmentsRequest) (repository.ListParams, error) {
	params := repository.ListParams{
		TenantID:       caller.TenantID,
		EmployeeID:     req.EmployeeID,
		VisitorID:      req.VisitorID,
		Search:         req.Search,
		IncludeDeleted: req.IncludeDeleted,
		SortBy:         req.SortBy,
		SortOrder:      req.SortOrder,
		Page:           req.Page,
		Limit:          req.Limit,
	}
	if params.Page < 1 {
		params.Page = defaultPage
	}
	if params.Limit < 1 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	if req.Status != "" {
		status := domain.Status(req.Status)
		if !status.Valid() {
			return params, apperr.BadRequest("invalid status filter")
		}
		value := string(status)
		params.Status = &value
	}

	var err error
	if params.DateFrom, err = parseOptionalDate(req.DateFrom, "dateFrom"); err != nil {
		return params, err
	}
	if params.DateTo, err = parseOptionalDate(req.DateTo, "dateTo"); err != nil {
		return params, err
	}
	if params.DateTo != nil {
		end := params.DateTo.AddDate(0, 0, 1)
		params.DateTo = &end
	}

	if caller.Actor == domain.ActorEmployee {
		own, err := s.ownEmployeeID(ctx, nil, caller)
		if err != nil {
			return params, err
		}
		params.EmployeeID = &own
	}
	return params, nil
}

// Calendar groups live appointments in [from, to] by day.
func (s *Service) Calendar(ctx context.Context, caller domain.Caller, req transport.CalendarRequest) ([]transport.CalendarDay, error) {
	from, err := domain.ParseDate(req.From)
	if err != nil {
		return nil, apperr.Validation("from must be a YYYY-MM-DD date")
	}
	to, err := domain.ParseDate(req.To)
	if err != nil {
		return nil, apperr.Validation("to must be a YYYY-MM-DD date")
	}
	if to.Before(from) {
		return nil, apperr.BadRequest("to must not be before from")
	}
	if to.Sub(from) > maxCalendarSpan {
		return nil, apperr.BadRequest("calendar range is too large")
	}

	employeeID := req.EmployeeID
	if caller.Actor == domain.ActorEmployee {
		own, err := s.ownEmployeeID(ctx, nil, caller)
		if err != nil {
			return nil, err
		}
		employeeID = &own
	}

	views, err := s.repo.Calendar(ctx, caller.TenantID, from, to.AddDate(0, 0, 1), employeeID)
	if err != nil {
		return nil, err
	}
	return groupByDay(views), nil
}

// groupByDay keeps the input order, which is by date then time.
func groupByDay(views []domain.View) []transport.CalendarDay {
	days := make([]transport.CalendarDay, 0)
	for _, v := range views {
		date := v.ScheduledDate.Format(domain.DateLayout)
		if len(days) == 0 || days[len(days)-1].Date != date {
			days = append(days, transport.CalendarDay{Date: date, Appointments: make([]transport.AppointmentResponse, 0, 1)})
		}
		last := &days[len(days)-1]
		last.Appointments = append(last.Appointments, transport.ToViewResponse(v))
	}
	return days
}

// Stats summarises live appointments, optionally within [from, to].
func (s *Service) Stats(ctx context.Context, caller domain.Caller, req transport.StatsRequest) (*transport.StatsResponse, error) {
	from, err := parseOptionalDate(req.From, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate(req.To, "to")
	if err != nil {
		return nil, err
	}
	if to != nil {
		end := to.AddDate(0, 0, 1)
		to = &end
	}

	var employeeID *uuid.UUID
	if caller.Actor == domain.ActorEmployee {
		own, err := s.ownEmployeeID(ctx, nil, caller)
		if err != nil {
			return nil, err
		}
		employeeID = &own
	}

	stats, err := s.repo.Stats(ctx, caller.TenantID, from, to, s.today(), employeeID)
	if err != nil {
		return nil, err
	}
	return &transport.StatsResponse{
		Total:              stats.Total,
		Pending:            stats.Pending,
		Approved:           stats.Approved,
		Rejected:           stats.Rejected,
		Completed:          stats.Completed,
		Today:              stats.Today,
		CheckedIn:          stats.CheckedIn,
		AvgDurationMinutes: stats.AvgDurationMinutes,
	}, nil
}

// today is the current calendar date in the service location, as a UTC date.
func (s *Service) today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func parseOptionalDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := domain.ParseDate(value)
	if err != nil {
		return nil, apperr.Validation(field + " must be a YYYY-MM-DD date")
	}
	return &parsed, nil
}
