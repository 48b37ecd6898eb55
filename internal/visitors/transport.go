package visitors

import (
	"time"

	"visitor_backend/internal/adapters/storage"

	"github.com/google/uuid"
)

// CreateRequest is the body of POST /visitors
type CreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"required,min=6,max=20"`
	Company  string `json:"company,omitempty" validate:"max=100"`
	IDType   string `json:"idType,omitempty" validate:"max=50"`
	IDNumber string `json:"idNumber,omitempty" validate:"max=50"`
}

// UpdateRequest is the body of PUT /visitors/:id
type UpdateRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Company  *string `json:"company,omitempty" validate:"omitempty,max=100"`
	IDType   *string `json:"idType,omitempty" validate:"omitempty,max=50"`
	IDNumber *string `json:"idNumber,omitempty" validate:"omitempty,max=50"`
}

// ListRequest is the query string of GET /visitors
type ListRequest struct {
	Search string `form:"search" validate:"max=100"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// PhotoUploadRequest is the body of POST /visitors/:id/photo-upload-url
type PhotoUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// Response is the JSON form of a visitor
type Response struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company,omitempty"`
	IDType    string    `json:"idType,omitempty"`
	IDNumber  string    `json:"idNumber,omitempty"`
	PhotoURL  *string   `json:"photoUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListResponse is a page of visitors
type ListResponse struct {
	Items       []Response `json:"items"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
	TotalCount  int        `json:"totalCount"`
	HasNextPage bool       `json:"hasNextPage"`
	HasPrevPage bool       `json:"hasPrevPage"`
}

// PhotoUploadResponse is where the client PUTs the photo
type PhotoUploadResponse = storage.PresignedURL

func toResponse(v Visitor) Response {
	return Response{
		ID:        v.ID,
		Name:      v.Name,
		Email:     v.Email,
		Phone:     v.Phone,
		Company:   v.Company,
		IDType:    v.IDType,
		IDNumber:  v.IDNumber,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}
