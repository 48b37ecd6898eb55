// Package realtime routes appointment events to connected dashboards.
package realtime

import (
	"visitor_backend/internal/appointments/domain"

	"github.com/google/uuid"
)

// Kind is the realtime event family.
type Kind string

const (
	KindCreated      Kind = "created"
	KindStatusChange Kind = "statusChange"
)

const (
	EventRefresh      = "appointments:refresh"
	EventNotification = "notification"
)

// AccountRoom is the room a single account listens on.
func AccountRoom(accountID uuid.UUID) string {
	return "account:" + accountID.String()
}

// TenantRoom is the refresh room every client of a tenant listens on.
func TenantRoom(tenantID uuid.UUID) string {
	return "tenant:" + tenantID.String()
}

// EventName is the data event emitted to audience rooms.
func EventName(kind Kind) string {
	return "appointment:" + string(kind)
}

// Audience returns the accounts that should hear about an action. The actor is never told about
// their own action; a visitor creating an appointment reaches both internal parties. A visitor
// status change comes from an approval link and routes like an admin action. An employee without
// a linked account is skipped.
func Audience(kind Kind, actor domain.Actor, adminID uuid.UUID, employeeAccountID *uuid.UUID) []uuid.UUID {
	var admin, employee bool
	switch actor {
	case domain.ActorEmployee:
		admin = true
	case domain.ActorVisitor:
		employee = true
		admin = kind == KindCreated
	default:
		employee = true
	}

	out := make([]uuid.UUID, 0, 2)
	if admin && adminID != uuid.Nil {
		out = append(out, adminID)
	}
	if employee && employeeAccountID != nil && *employeeAccountID != uuid.Nil && *employeeAccountID != adminID {
		out = append(out, *employeeAccountID)
	}
	return out
}
