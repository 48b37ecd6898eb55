package visitors

import (
	"context"
	"strings"

	"visitor_backend/internal/adapters/storage"
	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"
	"visitor_backend/platform/logger"
	"visitor_backend/platform/phone"
	"visitor_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Store is the persistence the register needs.
type Store interface {
	FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*Visitor, error)
	FindByContact(ctx context.Context, q db.DBTX, tenantID uuid.UUID, phone, email string) (*Visitor, error)
	Create(ctx context.Context, q db.DBTX, v *Visitor) error
	Update(ctx context.Context, v *Visitor) error
	SoftDelete(ctx context.Context, tenantID, id uuid.UUID, by *uuid.UUID) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// PhotoStorage presigns visitor photo uploads and downloads.
type PhotoStorage interface {
	GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error)
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
}

// Contact is what a self-booking visitor tells about themselves.
type Contact struct {
	Name    string
	Email   string
	Phone   string
	Company string
}

// Service manages the visitor register of a tenant.
type Service struct {
	store  Store
	photos PhotoStorage
	bucket string
	lock   func(ctx context.Context, q db.DBTX, key string) error
	log    *logger.Logger
}

// NewService creates a visitor service. photos may be nil when object storage is not configured.
func NewService(store Store, photos PhotoStorage, bucket string, log *logger.Logger) *Service {
	return &Service{store: store, photos: photos, bucket: bucket, lock: db.LockSlot, log: log}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req CreateRequest) (*Response, error) {
	phoneNumber, err := validPhone(req.Phone)
	if err != nil {
		return nil, err
	}
	v := &Visitor{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     sanitize.Text(req.Name),
		Email:    normalizeEmail(req.Email),
		Phone:    phoneNumber,
		Company:  sanitize.Text(req.Company),
		IDType:   sanitize.Text(req.IDType),
		IDNumber: sanitize.Text(req.IDNumber),
	}
	if err := s.store.Create(ctx, nil, v); err != nil {
		return nil, err
	}
	resp := toResponse(*v)
	return &resp, nil
}

// FindOrCreate returns the visitor whose phone and email both match contact, registering a new
// one otherwise. A partial match never reuses a record, so callers cannot reach another
// visitor's details by knowing only one of them. Concurrent calls for the same phone serialize on an advisory lock held by q.
func (s *Service) FindOrCreate(ctx context.Context, q db.DBTX, tenantID uuid.UUID, contact Contact) (*Visitor, error) {
	phoneNumber, err := validPhone(contact.Phone)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(contact.Email)

	if q != nil {
		if err := s.lock(ctx, q, "visitor-contact:"+tenantID.String()+":"+phoneNumber); err != nil {
			return nil, err
		}
	}

	existing, err := s.store.FindByContact(ctx, q, tenantID, phoneNumber, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	v := &Visitor{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     sanitize.Text(contact.Name),
		Email:    email,
		Phone:    phoneNumber,
		Company:  sanitize.Text(contact.Company),
	}
	if err := s.store.Create(ctx, q, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Response, error) {
	v, err := s.live(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*v)
	resp.PhotoURL = s.photoURL(ctx, v)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateRequest) (*Response, error) {
	v, err := s.live(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Phone != nil {
		phoneNumber, err := validPhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		v.Phone = phoneNumber
	}
	if req.Name != nil {
		v.Name = sanitize.Text(*req.Name)
	}
	if req.Email != nil {
		v.Email = normalizeEmail(*req.Email)
	}
	if req.Company != nil {
		v.Company = sanitize.Text(*req.Company)
	}
	if req.IDType != nil {
		v.IDType = sanitize.Text(*req.IDType)
	}
	if req.IDNumber != nil {
		v.IDNumber = sanitize.Text(*req.IDNumber)
	}

	if err := s.store.Update(ctx, v); err != nil {
		return nil, err
	}
	resp := toResponse(*v)
	resp.PhotoURL = s.photoURL(ctx, v)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID, by *uuid.UUID) error {
	return s.store.SoftDelete(ctx, tenantID, id, by)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req ListRequest) (*ListResponse, error) {
	params := ListParams{TenantID: tenantID, Search: strings.TrimSpace(req.Search), Page: req.Page, Limit: req.Limit}
	if params.Page < 1 {
		params.Page = defaultPage
	}
	if params.Limit < 1 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	result, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}
	items := make([]Response, 0, len(result.Items))
	for _, v := range result.Items {
		items = append(items, toResponse(v))
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

// PhotoUploadURL presigns an upload for the visitor's photo and records its key.
func (s *Service) PhotoUploadURL(ctx context.Context, tenantID, id uuid.UUID, req PhotoUploadRequest) (*PhotoUploadResponse, error) {
	if s.photos == nil {
		return nil, apperr.BadRequest("photo uploads are not configured")
	}
	v, err := s.live(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	folder := tenantID.String() + "/" + v.ID.String()
	presigned, err := s.photos.GenerateUploadURL(ctx, s.bucket, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return nil, err
	}

	v.PhotoKey = &presigned.FileKey
	if err := s.store.Update(ctx, v); err != nil {
		return nil, err
	}
	return presigned, nil
}

func (s *Service) photoURL(ctx context.Context, v *Visitor) *string {
	if s.photos == nil || v.PhotoKey == nil {
		return nil
	}
	presigned, err := s.photos.GenerateDownloadURL(ctx, s.bucket, *v.PhotoKey)
	if err != nil {
		s.log.Warn("failed to presign visitor photo", "visitorId", v.ID, "error", err)
		return nil
	}
	return &presigned.URL
}

func (s *Service) live(ctx context.Context, tenantID, id uuid.UUID) (*Visitor, error) {
	v, err := s.store.FindByID(ctx, nil, tenantID, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound(msgNotFound)
	}
	return v, nil
}

func validPhone(input string) (string, error) {
	normalized := phone.NormalizeE164(input)
	if !phone.IsValid(normalized) {
		return "", apperr.Validation(msgInvalidPhone)
	}
	return normalized, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
