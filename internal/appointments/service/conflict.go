package service

import (
	"context"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
)

// SlotStore is what the conflict checker needs from persistence.
type SlotStore interface {
	LockSlot(ctx context.Context, q db.DBTX, slotKey string) error
	HasApprovedInSlot(ctx context.Context, q db.DBTX, employeeID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error)
}

// ConflictChecker guards the one-approved-appointment-per-slot rule.
// Slots are equal when employee, date and start time match exactly; durations are not compared.
type ConflictChecker struct {
	store SlotStore
}

func NewConflictChecker(store SlotStore) *ConflictChecker {
	return &ConflictChecker{store: store}
}

// HasConflict reports whether another live approved appointment holds the slot.
// The caller must hold the slot lock for the answer to stay true until commit.
func (c *ConflictChecker) HasConflict(ctx context.Context, q db.DBTX, employeeID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error) {
	return c.store.HasApprovedInSlot(ctx, q, employeeID, date, clock, excludeID)
}

// Reserve locks the slot for the rest of the transaction and fails with Conflict when it is taken.
func (c *ConflictChecker) Reserve(ctx context.Context, q db.DBTX, employeeID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) error {
	if err := c.store.LockSlot(ctx, q, domain.SlotKey(employeeID, date, clock)); err != nil {
		return err
	}
	taken, err := c.HasConflict(ctx, q, employeeID, date, clock, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict(domain.MsgSlotTaken)
	}
	return nil
}
