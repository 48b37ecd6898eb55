package inapp

import (
	"context"

	"visitor_backend/platform/apperr"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, tenantID, userID uuid.UUID, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, tenantID, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)
}

type Service struct {
	repo Store
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

type RecordParams struct {
	TenantID      uuid.UUID
	UserID        uuid.UUID
	Type          string
	Title         string
	Message       string
	AppointmentID *uuid.UUID
	Metadata      map[string]any
}

// Record persists a notification for one account. Failures are logged and swallowed so callers
// never fail on in-app bookkeeping.
func (s *Service) Record(ctx context.Context, p RecordParams) {
	if s == nil || s.repo == nil {
		return
	}

	_, err := s.repo.Create(ctx, CreateParams{
		TenantID:      p.TenantID,
		UserID:        p.UserID,
		Type:          p.Type,
		Title:         p.Title,
		Message:       p.Message,
		AppointmentID: p.AppointmentID,
		Metadata:      p.Metadata,
	})
	if err != nil && s.log != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "userId", p.UserID)
	}
}

type Page struct {
	Items    []Notification `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

func (s *Service) List(ctx context.Context, tenantID, userID uuid.UUID, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, tenantID, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Service) CountUnread(ctx context.Context, tenantID, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperr.BadRequest("invalid notification id")
	}
	return s.repo.MarkRead(ctx, tenantID, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, tenantID, userID)
}
