package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"hms-server/internal/domain/outbox"
)

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Append(ctx context.Context, tx DBTX, e *outbox.Entry) error {
	// Append only ever runs inside the business transaction so the entry
	// co-commits with the mutation it describes.
	if tx == nil {
		return errors.New("outbox append requires an active transaction")
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO outbox_entries (id, tenant_id, aggregate_type, aggregate_id, event_type, payload, attempts, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `,
		e.ID,
		e.TenantID,
		e.AggregateType,
		e.AggregateID,
		e.EventType,
		e.Payload,
		e.Attempts,
		e.CreatedAt,
	)
	return err
}

// ClaimBatch leases claimable entries in one atomic statement: candidate
// rows are selected oldest-first with SKIP LOCKED so concurrent relays
// never claim the same row, then locked_at is stamped and attempts
// incremented before the rows are returned. A lock older than
// outbox.LockStaleness counts as abandoned and is claimable again.
func (r *outboxRepository) ClaimBatch(ctx context.Context, limit int) ([]outbox.Entry, error) {
	rows, err := r.db.Query(ctx, `
        UPDATE outbox_entries
        SET locked_at = now(), attempts = attempts + 1
        WHERE id IN (
            SELECT id
            FROM outbox_entries
            WHERE processed_at IS NULL
              AND (locked_at IS NULL OR locked_at < now() - ($1 * interval '1 second'))
            ORDER BY created_at ASC
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, tenant_id, aggregate_type, aggregate_id, event_type, payload, attempts, created_at, locked_at, processed_at, last_error
    `, int(outbox.LockStaleness.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []outbox.Entry
	for rows.Next() {
		var e outbox.Entry
		var lastError *string
		if err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.AggregateType,
			&e.AggregateID,
			&e.EventType,
			&e.Payload,
			&e.Attempts,
			&e.CreatedAt,
			&e.LockedAt,
			&e.ProcessedAt,
			&lastError,
		); err != nil {
			return nil, err
		}
		if lastError != nil {
			e.LastError = *lastError
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
        UPDATE outbox_entries
        SET processed_at = now(), last_error = NULL
        WHERE id = $1 AND processed_at IS NULL
    `, id)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	_, err := r.db.Exec(ctx, `
        UPDATE outbox_entries
        SET last_error = $1
        WHERE id = $2 AND processed_at IS NULL
    `, errorMsg, id)
	return err
}
