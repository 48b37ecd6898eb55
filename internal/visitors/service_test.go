package visitors

import (
	"context"
	"errors"
	"testing"
	"time"

	"visitor_backend/internal/adapters/storage"
	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryStore struct {
	visitors map[uuid.UUID]Visitor
	creates  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{visitors: map[uuid.UUID]Visitor{}}
}

func (m *memoryStore) FindByID(_ context.Context, _ db.DBTX, tenantID, id uuid.UUID) (*Visitor, error) {
	v, ok := m.visitors[id]
	if !ok || v.TenantID != tenantID || v.IsDeleted {
		return nil, nil
	}
	return &v, nil
}

func (m *memoryStore) FindByContact(_ context.Context, _ db.DBTX, tenantID uuid.UUID, phone, email string) (*Visitor, error) {
	for _, v := range m.visitors {
		if v.TenantID != tenantID || v.IsDeleted {
			continue
		}
		if v.Phone == phone && v.Email == email {
			found := v
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) Create(_ context.Context, _ db.DBTX, v *Visitor) error {
	m.creates++
	m.visitors[v.ID] = *v
	return nil
}

func (m *memoryStore) Update(_ context.Context, v *Visitor) error {
	m.visitors[v.ID] = *v
	return nil
}

func (m *memoryStore) SoftDelete(_ context.Context, tenantID, id uuid.UUID, by *uuid.UUID) error {
	v, ok := m.visitors[id]
	if !ok || v.IsDeleted {
		return apperr.NotFound(msgNotFound)
	}
	v.IsDeleted = true
	v.DeletedBy = by
	m.visitors[id] = v
	return nil
}

func (m *memoryStore) List(_ context.Context, params ListParams) (*ListResult, error) {
	return &ListResult{Items: []Visitor{}, Page: params.Page}, nil
}

type fakePhotos struct {
	folder string
	err    error
}

func (f *fakePhotos) GenerateUploadURL(_ context.Context, _, folder, fileName, _ string, _ int64) (*storage.PresignedURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.folder = folder
	return &storage.PresignedURL{URL: "https://minio.local/put", FileKey: folder + "/" + fileName, ExpiresAt: time.Now()}, nil
}

func (f *fakePhotos) GenerateDownloadURL(_ context.Context, _, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://minio.local/get/" + fileKey, FileKey: fileKey}, nil
}

type fakeTx struct{ db.DBTX }

func newTestService(store Store, photos PhotoStorage) (*Service, *[]string) {
	svc := NewService(store, photos, "visitor-photos", logger.NewNop())
	var locked []string
	svc.lock = func(_ context.Context, _ db.DBTX, key string) error {
		locked = append(locked, key)
		return nil
	}
	return svc, &locked
}

func TestFindOrCreateMatchesReturningVisitors(t *testing.T) {
	store := newMemoryStore()
	svc, locked := newTestService(store, nil)
	tenantID := uuid.New()
	ctx := context.Background()
	tx := fakeTx{}

	first, err := svc.FindOrCreate(ctx, tx, tenantID, Contact{Name: "Lotte Bakker", Phone: "06 23456789", Email: "Lotte@Example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Phone != "+31623456789" || first.Email != "lotte@example.com" {
		t.Fatalf("unexpected normalization: %+v", first)
	}

	again, err := svc.FindOrCreate(ctx, tx, tenantID, Contact{Name: "L. Bakker", Phone: "+31 6 23456789", Email: "LOTTE@example.com "})
	if err != nil || again.ID != first.ID {
		t.Fatalf("expected a returning visitor to be matched, got %+v %v", again, err)
	}

	other, err := svc.FindOrCreate(ctx, tx, uuid.New(), Contact{Name: "Lotte", Phone: "06 23456789", Email: "lotte@example.com"})
	if err != nil || other.ID == first.ID {
		t.Fatalf("expected tenants to keep separate registers")
	}

	if store.creates != 2 {
		t.Fatalf("expected 2 visitors to be registered, got %d", store.creates)
	}
	if len(*locked) != 3 || (*locked)[0] != "visitor-contact:"+tenantID.String()+":+31623456789" {
		t.Fatalf("unexpected locks %v", *locked)
	}
}

func TestFindOrCreateNeverReusesPartialMatches(t *testing.T) {
	store := newMemoryStore()
	svc, _ := newTestService(store, nil)
	tenantID := uuid.New()
	ctx := context.Background()

	stored, err := svc.FindOrCreate(ctx, fakeTx{}, tenantID, Contact{Name: "Ingrid", Phone: "06 23456789", Email: "ingrid@example.com", Company: "Fjord BV"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		contact Contact
	}{
		{name: "same email other phone", contact: Contact{Name: "Someone", Phone: "06 11111111", Email: "ingrid@example.com"}},
		{name: "same phone other email", contact: Contact{Name: "Someone", Phone: "06 23456789", Email: "someone@example.com"}},
		{name: "same phone no email", contact: Contact{Name: "Someone", Phone: "06 23456789"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FindOrCreate(ctx, fakeTx{}, tenantID, tt.contact)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID == stored.ID || got.Company == "Fjord BV" || got.Name != "Someone" {
				t.Fatalf("expected a new visitor, got %+v", got)
			}
		})
	}
}

func TestFindOrCreateRejectsInvalidPhone(t *testing.T) {
	svc, _ := newTestService(newMemoryStore(), nil)

	_, err := svc.FindOrCreate(context.Background(), nil, uuid.New(), Contact{Name: "X", Phone: "12"})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPhotoUploadURL(t *testing.T) {
	store := newMemoryStore()
	photos := &fakePhotos{}
	svc, _ := newTestService(store, photos)
	tenantID := uuid.New()
	ctx := context.Background()

	created, err := svc.Create(ctx, tenantID, CreateRequest{Name: "Tom de Vries", Phone: "0612345678"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	presigned, err := svc.PhotoUploadURL(ctx, tenantID, created.ID, PhotoUploadRequest{FileName: "face.jpg", ContentType: "image/jpeg", SizeBytes: 1024})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if photos.folder != tenantID.String()+"/"+created.ID.String() {
		t.Fatalf("unexpected folder %q", photos.folder)
	}
	stored := store.visitors[created.ID]
	if stored.PhotoKey == nil || *stored.PhotoKey != presigned.FileKey {
		t.Fatalf("expected the photo key to be recorded")
	}

	got, err := svc.Get(ctx, tenantID, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PhotoURL == nil || *got.PhotoURL != "https://minio.local/get/"+presigned.FileKey {
		t.Fatalf("expected a presigned photo url, got %v", got.PhotoURL)
	}

	photos.err = errors.New("minio down")
	if _, err := svc.PhotoUploadURL(ctx, tenantID, created.ID, PhotoUploadRequest{FileName: "b.jpg", ContentType: "image/jpeg", SizeBytes: 1}); err == nil {
		t.Fatalf("expected storage errors to surface")
	}
}

func TestPhotoUploadWithoutStorage(t *testing.T) {
	svc, _ := newTestService(newMemoryStore(), nil)

	_, err := svc.PhotoUploadURL(context.Background(), uuid.New(), uuid.New(), PhotoUploadRequest{})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request without storage, got %v", err)
	}
}
