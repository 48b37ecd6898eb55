// Package approval issues and consumes single-use approval links for pending appointments.
package approval

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	tokenBytes       = 32
	maxIssueAttempts = 5

	msgLinkNotFound = "Approval link not found"
	msgLinkUsed     = "Approval link has expired or already used"
	// MsgStatusLocked is returned by deciders when the appointment left pending.
	MsgStatusLocked = "Appointment status cannot be changed"
)

// Decision is the outcome chosen through an approval link.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is approved or rejected.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Link is a stored approval link.
type Link struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	AppointmentID uuid.UUID
	Token         string
	IsUsed        bool
	UsedAt        *time.Time
	CreatedAt     time.Time
}

// Issued is the result of Issue.
type Issued struct {
	Token string
	Link  string
}

// PublicAppointment is what an unauthenticated link holder may see.
type PublicAppointment struct {
	ID                 uuid.UUID `json:"id"`
	Purpose            string    `json:"purpose"`
	ScheduledDate      string    `json:"scheduledDate"`
	ScheduledTime      string    `json:"scheduledTime"`
	Duration           int       `json:"duration"`
	Status             string    `json:"status"`
	EmployeeName       string    `json:"employeeName"`
	EmployeeDepartment string    `json:"employeeDepartment"`
	VisitorName        string    `json:"visitorName"`
	VisitorCompany     string    `json:"visitorCompany"`
}

// Resolution describes a token without consuming it.
type Resolution struct {
	IsValid     bool               `json:"isValid"`
	IsUsed      bool               `json:"isUsed"`
	Appointment *PublicAppointment `json:"appointment,omitempty"`
}

// Store is the persistence the registry needs. A nil db.DBTX means "outside any transaction".
type Store interface {
	FindByAppointment(ctx context.Context, q db.DBTX, appointmentID uuid.UUID) (*Link, error)
	FindByToken(ctx context.Context, q db.DBTX, token string) (*Link, error)
	InsertIfAbsent(ctx context.Context, q db.DBTX, link Link) (bool, error)
	Claim(ctx context.Context, q db.DBTX, token string) (*Link, error)
	MarkUsedByAppointment(ctx context.Context, q db.DBTX, appointmentID uuid.UUID) error
	PublicAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID) (*PublicAppointment, error)
}

// Decider applies a link decision to the appointment inside the claiming transaction.
// It must lock the appointment and fail with MsgStatusLocked when it is no longer pending.
// The returned function runs after commit.
type Decider interface {
	DecideFromLink(ctx context.Context, tx db.DBTX, link Link, decision Decision) (func(context.Context), error)
}

// Registry owns the approval link lifecycle.
type Registry struct {
	store    Store
	txs      db.TxBeginner
	baseURL  string
	decider  Decider
	newToken func() (string, error)
}

// NewRegistry creates a registry. Links are built as baseURL + "/verify/" + token.
func NewRegistry(store Store, txs db.TxBeginner, baseURL string) *Registry {
	return &Registry{
		store:    store,
		txs:      txs,
		baseURL:  strings.TrimRight(baseURL, "/"),
		newToken: generateToken,
	}
}

// SetDecider wires the appointment lifecycle. It is set after construction because the
// lifecycle service also depends on the registry.
func (r *Registry) SetDecider(d Decider) {
	r.decider = d
}

// LinkFor returns the public URL of a token.
func (r *Registry) LinkFor(token string) string {
	return r.baseURL + "/verify/" + token
}

// Issue returns the appointment's link, creating it on first use.
func (r *Registry) Issue(ctx context.Context, q db.DBTX, tenantID, appointmentID uuid.UUID) (Issued, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		existing, err := r.store.FindByAppointment(ctx, q, appointmentID)
		if err != nil {
			return Issued{}, err
		}
		if existing != nil {
			return Issued{Token: existing.Token, Link: r.LinkFor(existing.Token)}, nil
		}

		token, err := r.newToken()
		if err != nil {
			return Issued{}, fmt.Errorf("failed to generate approval token: %w", err)
		}

		inserted, err := r.store.InsertIfAbsent(ctx, q, Link{
			ID:            uuid.New(),
			TenantID:      tenantID,
			AppointmentID: appointmentID,
			Token:         token,
		})
		if err != nil {
			return Issued{}, err
		}
		if inserted {
			return Issued{Token: token, Link: r.LinkFor(token)}, nil
		}
		// Either a concurrent issue for the same appointment won or the token collided.
		// The next pass returns the winner's link or retries with a fresh token.
	}
	return Issued{}, apperr.Internal("failed to issue approval link").WithOp("approval.Issue")
}

// Resolve describes a token for the public verification page.
func (r *Registry) Resolve(ctx context.Context, token string) (Resolution, error) {
	link, err := r.store.FindByToken(ctx, nil, token)
	if err != nil {
		return Resolution{}, err
	}
	if link == nil {
		return Resolution{IsValid: false}, nil
	}

	appt, err := r.store.PublicAppointment(ctx, link.TenantID, link.AppointmentID)
	if err != nil {
		return Resolution{}, err
	}
	if appt == nil {
		return Resolution{IsValid: false}, nil
	}
	return Resolution{IsValid: true, IsUsed: link.IsUsed, Appointment: appt}, nil
}

// Consume applies decision exactly once per token. Concurrent callers race on a single
// conditional update; every loser gets msgLinkUsed.
func (r *Registry) Consume(ctx context.Context, token string, decision Decision) error {
	if !decision.Valid() {
		return apperr.BadRequest("Decision must be approved or rejected")
	}
	if r.decider == nil {
		return apperr.Internal("approval decider not configured")
	}

	var afterCommit func(context.Context)
	err := db.WithTransaction(ctx, r.txs, func(tx pgx.Tx) error {
		link, err := r.store.Claim(ctx, tx, token)
		if err != nil {
			return err
		}
		if link == nil {
			existing, err := r.store.FindByToken(ctx, tx, token)
			if err != nil {
				return err
			}
			if existing == nil {
				return apperr.NotFound(msgLinkNotFound)
			}
			return apperr.BadRequest(msgLinkUsed)
		}

		afterCommit, err = r.decider.DecideFromLink(ctx, tx, *link, decision)
		return err
	})
	if err != nil {
		return err
	}

	if afterCommit != nil {
		afterCommit(ctx)
	}
	return nil
}

// MarkUsed consumes an appointment's link, if any, as part of an authenticated decision.
func (r *Registry) MarkUsed(ctx context.Context, q db.DBTX, appointmentID uuid.UUID) error {
	return r.store.MarkUsedByAppointment(ctx, q, appointmentID)
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
