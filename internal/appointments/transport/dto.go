package transport

import (
	"time"

	"visitor_backend/internal/appointments/domain"

	"github.com/google/uuid"
)

// CreateAppointmentRequest is the request body for creating an appointment
type CreateAppointmentRequest struct {
	EmployeeID    uuid.UUID `json:"employeeId" validate:"required"`
	VisitorID     uuid.UUID `json:"visitorId" validate:"required"`
	Purpose       string    `json:"purpose" validate:"required,min=2,max=500"`
	ScheduledDate string    `json:"scheduledDate" validate:"required,isodate"`
	ScheduledTime string    `json:"scheduledTime" validate:"required,hhmm"`
	Duration      int       `json:"duration,omitempty" validate:"omitempty,min=5,max=1440"`
	MeetingRoom   *string   `json:"meetingRoom,omitempty" validate:"omitempty,max=100"`
	Notes         *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
	VehicleNumber *string   `json:"vehicleNumber,omitempty" validate:"omitempty,max=20"`
	VehicleType   *string   `json:"vehicleType,omitempty" validate:"omitempty,max=50"`
	// AutoApprove is honoured for admins only.
	AutoApprove bool `json:"autoApprove"`
}

// PublicBookingRequest is the request body of the public self-booking endpoint
type PublicBookingRequest struct {
	EmployeeID     uuid.UUID `json:"employeeId" validate:"required"`
	VisitorName    string    `json:"visitorName" validate:"required,min=2,max=100"`
	VisitorPhone   string    `json:"visitorPhone" validate:"required,min=6,max=20"`
	VisitorEmail   string    `json:"visitorEmail,omitempty" validate:"omitempty,email"`
	VisitorCompany string    `json:"visitorCompany,omitempty" validate:"omitempty,max=100"`
	Purpose        string    `json:"purpose" validate:"required,min=2,max=500"`
	ScheduledDate  string    `json:"scheduledDate" validate:"required,isodate"`
	ScheduledTime  string    `json:"scheduledTime" validate:"required,hhmm"`
	Duration       int       `json:"duration,omitempty" validate:"omitempty,min=5,max=1440"`
	Notes          *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateAppointmentRequest is the request body for updating an appointment
type UpdateAppointmentRequest struct {
	EmployeeID    *uuid.UUID `json:"employeeId,omitempty"`
	Purpose       *string    `json:"purpose,omitempty" validate:"omitempty,min=2,max=500"`
	ScheduledDate *string    `json:"scheduledDate,omitempty" validate:"omitempty,isodate"`
	ScheduledTime *string    `json:"scheduledTime,omitempty" validate:"omitempty,hhmm"`
	Duration      *int       `json:"duration,omitempty" validate:"omitempty,min=5,max=1440"`
	MeetingRoom   *string    `json:"meetingRoom,omitempty" validate:"omitempty,max=100"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	VehicleNumber *string    `json:"vehicleNumber,omitempty" validate:"omitempty,max=20"`
	VehicleType   *string    `json:"vehicleType,omitempty" validate:"omitempty,max=50"`
}

// CheckInRequest is the request body for checking a visitor in
type CheckInRequest struct {
	AppointmentID     uuid.UUID `json:"appointmentId" validate:"required"`
	BadgeNumber       *string   `json:"badgeNumber,omitempty" validate:"omitempty,max=50"`
	SecurityClearance *bool     `json:"securityClearance,omitempty"`
	SecurityNotes     *string   `json:"securityNotes,omitempty" validate:"omitempty,max=1000"`
}

// CheckOutRequest is the request body for checking a visitor out
type CheckOutRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId" validate:"required"`
	Notes         *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// BulkUpdateRequest applies one status to many appointments
type BulkUpdateRequest struct {
	IDs    []uuid.UUID   `json:"appointmentIds" validate:"required,min=1,max=100,dive,required"`
	Status domain.Status `json:"status" validate:"required,oneof=approved rejected completed"`
}

// ListAppointmentsRequest is shared by the list query string and the search body
type ListAppointmentsRequest struct {
	EmployeeID     *uuid.UUID `form:"employeeId" json:"employeeId,omitempty"`
	VisitorID      *uuid.UUID `form:"visitorId" json:"visitorId,omitempty"`
	Status         string     `form:"status" json:"status,omitempty" validate:"omitempty,oneof=pending approved rejected completed"`
	DateFrom       string     `form:"dateFrom" json:"dateFrom,omitempty" validate:"omitempty,isodate"`
	DateTo         string     `form:"dateTo" json:"dateTo,omitempty" validate:"omitempty,isodate"`
	Search         string     `form:"search" json:"search,omitempty" validate:"max=100"`
	IncludeDeleted bool       `form:"includeDeleted" json:"includeDeleted,omitempty"`
	SortBy         string     `form:"sortBy" json:"sortBy,omitempty"`
	SortOrder      string     `form:"sortOrder" json:"sortOrder,omitempty" validate:"omitempty,oneof=asc desc"`
	Page           int        `form:"page" json:"page,omitempty" validate:"omitempty,min=1"`
	Limit          int        `form:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// CalendarRequest is the query string of the calendar endpoint
type CalendarRequest struct {
	From       string     `form:"from" validate:"required,isodate"`
	To         string     `form:"to" validate:"required,isodate"`
	EmployeeID *uuid.UUID `form:"employeeId"`
}

// StatsRequest is the query string of the stats endpoint
type StatsRequest struct {
	From string `form:"from" validate:"omitempty,isodate"`
	To   string `form:"to" validate:"omitempty,isodate"`
}

// VisitorSummary is embedded visitor info for appointment responses
type VisitorSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	Phone   string    `json:"phone"`
	Company string    `json:"company,omitempty"`
}

// EmployeeSummary is embedded employee info for appointment responses
type EmployeeSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
}

// AppointmentResponse is the response body for an appointment
type AppointmentResponse struct {
	ID                uuid.UUID        `json:"id"`
	EmployeeID        uuid.UUID        `json:"employeeId"`
	VisitorID         uuid.UUID        `json:"visitorId"`
	Purpose           string           `json:"purpose"`
	ScheduledDate     string           `json:"scheduledDate"`
	ScheduledTime     string           `json:"scheduledTime"`
	Duration          int              `json:"duration"`
	MeetingRoom       *string          `json:"meetingRoom,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	VehicleNumber     *string          `json:"vehicleNumber,omitempty"`
	VehicleType       *string          `json:"vehicleType,omitempty"`
	Status            domain.Status    `json:"status"`
	CheckInTime       *time.Time       `json:"checkInTime,omitempty"`
	CheckOutTime      *time.Time       `json:"checkOutTime,omitempty"`
	ActualDuration    *int             `json:"actualDuration,omitempty"`
	BadgeIssued       bool             `json:"badgeIssued"`
	BadgeNumber       *string          `json:"badgeNumber,omitempty"`
	SecurityClearance bool             `json:"securityClearance"`
	SecurityNotes     *string          `json:"securityNotes,omitempty"`
	EmailSent         bool             `json:"emailSent"`
	WhatsAppSent      bool             `json:"whatsappSent"`
	SMSSent           bool             `json:"smsSent"`
	ReminderSent      bool             `json:"reminderSent"`
	IsDeleted         bool             `json:"isDeleted"`
	DeletedAt         *time.Time       `json:"deletedAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	Visitor           *VisitorSummary  `json:"visitor,omitempty"`
	Employee          *EmployeeSummary `json:"employee,omitempty"`
}

// CreateAppointmentResponse carries the approval link of pending appointments
type CreateAppointmentResponse struct {
	Appointment  AppointmentResponse `json:"appointment"`
	ApprovalLink *string             `json:"approvalLink,omitempty"`
}

// PublicBookingResponse is returned to anonymous self-bookers. It carries no
// visitor or host details.
type PublicBookingResponse struct {
	ID            uuid.UUID     `json:"id"`
	Status        domain.Status `json:"status"`
	ScheduledDate string        `json:"scheduledDate"`
	ScheduledTime string        `json:"scheduledTime"`
	Purpose       string        `json:"purpose"`
}

// AppointmentListResponse is the paginated response for listing appointments
type AppointmentListResponse struct {
	Items       []AppointmentResponse `json:"items"`
	CurrentPage int                   `json:"currentPage"`
	TotalPages  int                   `json:"totalPages"`
	TotalCount  int                   `json:"totalCount"`
	HasNextPage bool                  `json:"hasNextPage"`
	HasPrevPage bool                  `json:"hasPrevPage"`
}

// CalendarDay groups a day's appointments
type CalendarDay struct {
	Date         string                `json:"date"`
	Appointments []AppointmentResponse `json:"appointments"`
}

// StatsResponse summarises appointments
type StatsResponse struct {
	Total              int     `json:"total"`
	Pending            int     `json:"pending"`
	Approved           int     `json:"approved"`
	Rejected           int     `json:"rejected"`
	Completed          int     `json:"completed"`
	Today              int     `json:"today"`
	CheckedIn          int     `json:"checkedIn"`
	AvgDurationMinutes float64 `json:"avgDurationMinutes"`
}

// BulkFailure reports why one id of a bulk update failed
type BulkFailure struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

// BulkUpdateResponse reports a bulk update per id
type BulkUpdateResponse struct {
	Updated []uuid.UUID   `json:"updated"`
	Failed  []BulkFailure `json:"failed"`
}

// ApprovalLinkResponse is the issued approval link of an appointment
type ApprovalLinkResponse struct {
	Token string `json:"token"`
	Link  string `json:"link"`
}

// ToResponse maps a record without its joined parties.
func ToResponse(a domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		EmployeeID:        a.EmployeeID,
		VisitorID:         a.VisitorID,
		Purpose:           a.Purpose,
		ScheduledDate:     a.ScheduledDate.Format(domain.DateLayout),
		ScheduledTime:     a.ScheduledTime,
		Duration:          a.Duration,
		MeetingRoom:       a.MeetingRoom,
		Notes:             a.Notes,
		VehicleNumber:     a.VehicleNumber,
		VehicleType:       a.VehicleType,
		Status:            a.Status,
		CheckInTime:       a.CheckInTime,
		CheckOutTime:      a.CheckOutTime,
		ActualDuration:    a.ActualDuration,
		BadgeIssued:       a.BadgeIssued,
		BadgeNumber:       a.BadgeNumber,
		SecurityClearance: a.SecurityClearance,
		SecurityNotes:     a.SecurityNotes,
		EmailSent:         a.EmailSent,
		WhatsAppSent:      a.WhatsAppSent,
		SMSSent:           a.SMSSent,
		ReminderSent:      a.ReminderSent,
		IsDeleted:         a.IsDeleted,
		DeletedAt:         a.DeletedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// ToViewResponse maps a record with its visitor and employee.
func ToViewResponse(v domain.View) AppointmentResponse {
	resp := ToResponse(v.Appointment)
	resp.Visitor = &VisitorSummary{
		ID:      v.Visitor.ID,
		Name:    v.Visitor.Name,
		Email:   v.Visitor.Email,
		Phone:   v.Visitor.Phone,
		Company: v.Visitor.Company,
	}
	resp.Employee = &EmployeeSummary{
		ID:         v.Employee.ID,
		Name:       v.Employee.Name,
		Email:      v.Employee.Email,
		Phone:      v.Employee.Phone,
		Department: v.Employee.Department,
	}
	return resp
}

// ToPublicBookingResponse keeps only the booking's own fields.
func ToPublicBookingResponse(a AppointmentResponse) PublicBookingResponse {
	return PublicBookingResponse{
		ID:            a.ID,
		Status:        a.Status,
		ScheduledDate: a.ScheduledDate,
		ScheduledTime: a.ScheduledTime,
		Purpose:       a.Purpose,
	}
}

// ToViewResponses maps a slice of views.
func ToViewResponses(views []domain.View) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(views))
	for _, v := range views {
		out = append(out, ToViewResponse(v))
	}
	return out
}
