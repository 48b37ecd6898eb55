// Package outbox stores notification intents written inside business transactions
// and hands them to a worker after commit.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"visitor_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusEnqueued       Status = "enqueued"
	StatusProcessing     Status = "processing"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	errRepoNotConfigured        = "outbox repository not configured"
)

// KindAppointment is the outbox kind for appointment notification intents.
const KindAppointment = "appointment"

// IntentKind is what happened to the appointment.
type IntentKind string

const (
	IntentCreated       IntentKind = "created"
	IntentStatusChanged IntentKind = "status_changed"
	IntentReminder      IntentKind = "reminder"
)

// Intent asks the dispatcher to notify the parties of one appointment change.
type Intent struct {
	TenantID      uuid.UUID  `json:"tenantId"`
	AppointmentID uuid.UUID  `json:"appointmentId"`
	Kind          IntentKind `json:"kind"`
	Status        string     `json:"status"`
	ApprovalLink  string     `json:"approvalLink,omitempty"`
}

type Record struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Kind     string
	Template string
	Payload  json.RawMessage
	RunAt    time.Time
	Status   Status
	Attempts int
}

// Intent decodes an appointment record's payload.
func (r Record) Intent() (Intent, error) {
	var intent Intent
	if err := json.Unmarshal(r.Payload, &intent); err != nil {
		return Intent{}, fmt.Errorf("decode outbox intent: %w", err)
	}
	return intent, nil
}

type insertParams struct {
	TenantID uuid.UUID
	Kind     string
	Template string
	Payload  any
	RunAt    time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertIntent writes an appointment intent using q, normally the caller's transaction.
func (r *Repository) InsertIntent(ctx context.Context, q db.DBTX, intent Intent) (uuid.UUID, error) {
	return r.insert(ctx, q, insertParams{
		TenantID: intent.TenantID,
		Kind:     KindAppointment,
		Template: string(intent.Kind),
		Payload:  intent,
	})
}

func (r *Repository) insert(ctx context.Context, q db.DBTX, p insertParams) (uuid.UUID, error) {
	if p.TenantID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("tenantId is required")
	}
	if p.Kind == "" {
		return uuid.Nil, fmt.Errorf("kind is required")
	}
	if p.Template == "" {
		return uuid.Nil, fmt.Errorf("template is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}
	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id uuid.UUID
	err = q.QueryRow(ctx,
		`INSERT INTO notification_outbox (tenant_id, kind, template, payload, run_at, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')
		 RETURNING id`,
		p.TenantID, p.Kind, p.Template, payloadBytes, p.RunAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert outbox record: %w", err)
	}
	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, errors.New(errRepoNotConfigured)
	}

	var rec Record
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, kind, template, payload, run_at, status, attempts
		 FROM notification_outbox
		 WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.TenantID, &rec.Kind, &rec.Template, &rec.Payload, &rec.RunAt, &status, &rec.Attempts)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

// ClaimPending moves up to limit due pending records to enqueued and returns them.
// SKIP LOCKED lets several claimers run side by side without double delivery.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 50
	}

	var results []Record
	err := db.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `WITH cte AS (
			SELECT id
			FROM notification_outbox
			WHERE status = 'pending' AND run_at <= now()
			ORDER BY run_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_outbox o
		SET status = 'enqueued', updated_at = now()
		FROM cte
		WHERE o.id = cte.id
		RETURNING o.id, o.tenant_id, o.kind, o.template, o.payload, o.run_at, o.status, o.attempts`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var status string
			if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Kind, &rec.Template, &rec.Payload, &rec.RunAt, &status, &rec.Attempts); err != nil {
				return err
			}
			rec.Status = Status(status)
			results = append(results, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("claim outbox records: %w", err)
	}
	return results, nil
}

func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}

// MarkProcessing claims a pending or enqueued record for delivery. It reports false when
// another worker already took the record or it has finished, and the caller must not deliver it.
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New(errRepoNotConfigured)
	}
	var claimed uuid.UUID
	err := r.pool.QueryRow(ctx,
		`UPDATE notification_outbox
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'enqueued')
		 RETURNING id`,
		id,
	).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'succeeded', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}

// RequeueStale returns enqueued records untouched since before to pending.
// Processing records are left alone: a channel may already have been attempted.
func (r *Repository) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New(errRepoNotConfigured)
	}
	result, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', updated_at = now()
		 WHERE status = 'enqueued' AND updated_at < $1`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// DeleteFinishedBefore removes succeeded and failed records older than the given cutoffs.
func (r *Repository) DeleteFinishedBefore(ctx context.Context, succeededBefore, failedBefore time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New(errRepoNotConfigured)
	}
	result, err := r.pool.Exec(ctx,
		`DELETE FROM notification_outbox
		 WHERE (status = 'succeeded' AND updated_at < $1)
		    OR (status = 'failed' AND updated_at < $2)`,
		succeededBefore, failedBefore,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
