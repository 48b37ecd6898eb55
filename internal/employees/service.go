package employees

import (
	"context"
	"strings"

	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"
	"visitor_backend/platform/phone"
	"visitor_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Store is the persistence the directory needs.
type Store interface {
	FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*Employee, error)
	Create(ctx context.Context, e *Employee) error
	Update(ctx context.Context, e *Employee) error
	SoftDelete(ctx context.Context, tenantID, id uuid.UUID, by *uuid.UUID) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// Service manages the employee directory of a tenant.
type Service struct {
	store Store
}

// NewService creates a new employee directory service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req CreateRequest) (*Response, error) {
	e := &Employee{
		ID:          uuid.New(),
		TenantID:    tenantID,
		AccountID:   req.AccountID,
		Name:        sanitize.Text(req.Name),
		Email:       normalizeEmail(req.Email),
		Phone:       phone.NormalizeE164(req.Phone),
		Department:  sanitize.Text(req.Department),
		Designation: sanitize.Text(req.Designation),
		Status:      StatusActive,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	resp := toResponse(*e)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Response, error) {
	e, err := s.live(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*e)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateRequest) (*Response, error) {
	e, err := s.live(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.AccountID != nil {
		e.AccountID = req.AccountID
	}
	if req.Name != nil {
		e.Name = sanitize.Text(*req.Name)
	}
	if req.Email != nil {
		e.Email = normalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		e.Phone = phone.NormalizeE164(*req.Phone)
	}
	if req.Department != nil {
		e.Department = sanitize.Text(*req.Department)
	}
	if req.Designation != nil {
		e.Designation = sanitize.Text(*req.Designation)
	}

	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}
	resp := toResponse(*e)
	return &resp, nil
}

// SetStatus activates or deactivates an employee. Inactive employees keep their existing
// appointments but cannot receive new ones.
func (s *Service) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) (*Response, error) {
	if status != StatusActive && status != StatusInactive {
		return nil, apperr.BadRequest("status must be Active or Inactive")
	}
	e, err := s.live(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	e.Status = status
	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}
	resp := toResponse(*e)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID, by *uuid.UUID) error {
	return s.store.SoftDelete(ctx, tenantID, id, by)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req ListRequest) (*ListResponse, error) {
	params := ListParams{
		TenantID:       tenantID,
		Search:         strings.TrimSpace(req.Search),
		Department:     strings.TrimSpace(req.Department),
		IncludeDeleted: req.IncludeDeleted,
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
		status := Status(req.Status)
		params.Status = &status
	}

	result, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]Response, 0, len(result.Items))
	for _, e := range result.Items {
		items = append(items, toResponse(e))
	}
	return &ListResponse{
		Items:       items,
		CurrentPage: result.Page,
		TotalPages:  result.TotalPages,
		TotalCount:  result.Total,
		HasNextPage: result.Page < result.TotalPages,
		HasPrevPage: result.Page > 1,
	}, nil
}

func (s *Service) live(ctx context.Context, tenantID, id uuid.UUID) (*Employee, error) {
	e, err := s.store.FindByID(ctx, nil, tenantID, id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.IsDeleted {
		return nil, apperr.NotFound(msgNotFound)
	}
	return e, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
