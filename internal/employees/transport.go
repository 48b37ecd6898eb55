package employees

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the body of POST /employees
type CreateRequest struct {
	AccountID   *uuid.UUID `json:"accountId,omitempty"`
	Name        string     `json:"name" validate:"required,min=2,max=100"`
	Email       string     `json:"email" validate:"required,email,max=254"`
	Phone       string     `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Department  string     `json:"department,omitempty" validate:"max=100"`
	Designation string     `json:"designation,omitempty" validate:"max=100"`
}

// UpdateRequest is the body of PUT /employees/:id
type UpdateRequest struct {
	AccountID   *uuid.UUID `json:"accountId,omitempty"`
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone       *string    `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Department  *string    `json:"department,omitempty" validate:"omitempty,max=100"`
	Designation *string    `json:"designation,omitempty" validate:"omitempty,max=100"`
}

// StatusRequest is the body of PATCH /employees/:id/status
type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=Active Inactive"`
}

// ListRequest is the query string of GET /employees
type ListRequest struct {
	Search         string `form:"search" validate:"max=100"`
	Department     string `form:"department" validate:"max=100"`
	Status         string `form:"status" validate:"omitempty,oneof=Active Inactive"`
	IncludeDeleted bool   `form:"includeDeleted"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	Limit          int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// Response is the JSON form of an employee
type Response struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   *uuid.UUID `json:"accountId,omitempty"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Department  string     `json:"department,omitempty"`
	Designation string     `json:"designation,omitempty"`
	Status      Status     `json:"status"`
	IsDeleted   bool       `json:"isDeleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ListResponse is a page of employees
type ListResponse struct {
	Items       []Response `json:"items"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
	TotalCount  int        `json:"totalCount"`
	HasNextPage bool       `json:"hasNextPage"`
	HasPrevPage bool       `json:"hasPrevPage"`
}

func toResponse(e Employee) Response {
	return Response{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Name:        e.Name,
		Email:       e.Email,
		Phone:       e.Phone,
		Department:  e.Department,
		Designation: e.Designation,
		Status:      e.Status,
		IsDeleted:   e.IsDeleted,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
