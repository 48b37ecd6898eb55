package domain

import (
	"testing"
	"time"

	"visitor_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestTerminalStatuses(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:   false,
		StatusApproved:  false,
		StatusRejected:  true,
		StatusCompleted: true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s: expected terminal=%v, got %v", status, want, got)
		}
		if want && EnsureCanCancel(status) == nil {
			t.Errorf("%s: expected cancel to be refused", status)
		}
	}
}

func TestTransitionGuards(t *testing.T) {
	tests := []struct {
		name    string
		guard   func(Status) error
		status  Status
		wantMsg string
	}{
		{"approve pending", EnsureCanApprove, StatusPending, ""},
		{"approve approved", EnsureCanApprove, StatusApproved, MsgOnlyPendingApprove},
		{"approve rejected", EnsureCanApprove, StatusRejected, MsgOnlyPendingApprove},
		{"reject pending", EnsureCanReject, StatusPending, ""},
		{"reject completed", EnsureCanReject, StatusCompleted, MsgOnlyPendingReject},
		{"check in pending", EnsureCanCheckIn, StatusPending, ""},
		{"check in approved", EnsureCanCheckIn, StatusApproved, MsgOnlyPendingCheckIn},
		{"cancel pending", EnsureCanCancel, StatusPending, ""},
		{"cancel approved", EnsureCanCancel, StatusApproved, ""},
		{"cancel completed", EnsureCanCancel, StatusCompleted, MsgCancelCompleted},
		{"cancel rejected", EnsureCanCancel, StatusRejected, MsgAlreadyCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guard(tt.status)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			appErr, ok := apperr.As(err)
			if !ok || appErr.Kind != apperr.KindBadRequest || appErr.Message != tt.wantMsg {
				t.Fatalf("expected bad request %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestInitialStatus(t *testing.T) {
	if InitialStatus(ActorAdmin, true) != StatusApproved {
		t.Fatalf("expected admin auto-approve to start approved")
	}
	if InitialStatus(ActorEmployee, true) != StatusPending {
		t.Fatalf("expected employees to be unable to auto-approve")
	}
	if InitialStatus(ActorAdmin, false) != StatusPending {
		t.Fatalf("expected pending without auto-approve")
	}
}

func TestCheckOutDuration(t *testing.T) {
	in := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	t.Run("with check-in", func(t *testing.T) {
		appt := &Appointment{Status: StatusApproved, CheckInTime: &in}
		appt.CheckOut(in.Add(45*time.Minute+59*time.Second), nil)
		if appt.Status != StatusCompleted {
			t.Fatalf("expected completed, got %s", appt.Status)
		}
		if appt.ActualDuration == nil || *appt.ActualDuration != 45 {
			t.Fatalf("expected floored duration 45, got %v", appt.ActualDuration)
		}
	})

	t.Run("without check-in", func(t *testing.T) {
		appt := &Appointment{Status: StatusPending}
		appt.CheckOut(in, nil)
		if appt.ActualDuration != nil {
			t.Fatalf("expected duration to stay unset, got %d", *appt.ActualDuration)
		}
		if appt.CheckOutTime == nil || appt.Status != StatusCompleted {
			t.Fatalf("expected check-out to complete the appointment")
		}
	})
}

func TestCheckInApprovesAndRecordsBadge(t *testing.T) {
	now := time.Now()
	badge := "B-12"
	clearance := true
	appt := &Appointment{Status: StatusPending}

	if err := appt.CheckIn(now, CheckInDetails{BadgeNumber: &badge, SecurityClearance: &clearance}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != StatusApproved || appt.CheckInTime == nil {
		t.Fatalf("expected approved with check-in time, got %s", appt.Status)
	}
	if !appt.BadgeIssued || *appt.BadgeNumber != badge || !appt.SecurityClearance {
		t.Fatalf("expected badge and clearance to be recorded")
	}
	if err := appt.CheckIn(now, CheckInDetails{}); err == nil {
		t.Fatalf("expected second check-in to fail")
	}
}

func TestStartsAtUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skip("timezone database unavailable")
	}
	date, _ := ParseDate("2024-01-10")
	got, err := StartsAt(date, "10:00", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UTC().Hour() != 9 {
		t.Fatalf("expected 09:00 UTC, got %s", got.UTC())
	}
	if _, err := StartsAt(date, "25:00", loc); err == nil {
		t.Fatalf("expected invalid clock time to fail")
	}
}

func TestSlotKeyIsStable(t *testing.T) {
	id := uuid.MustParse("6f1c3c1e-8a4e-4a53-9a59-3f0c1d7f4b10")
	date, _ := ParseDate("2024-01-10")
	want := "appointment-slot:6f1c3c1e-8a4e-4a53-9a59-3f0c1d7f4b10:2024-01-10:10:00"
	if got := SlotKey(id, date, "10:00"); got != want {
		t.Fatalf("unexpected slot key %q", got)
	}
}
