package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hms-server/internal/domain/appointment"
	"hms-server/internal/domain/audit"
	"hms-server/internal/domain/outbox"
)

type AppointmentRepository interface {
	Create(ctx context.Context, tx DBTX, a *appointment.Appointment) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*appointment.Appointment, error)
	// GetForUpdate row-locks the appointment for the duration of tx.
	GetForUpdate(ctx context.Context, tx DBTX, tenantID, id uuid.UUID) (*appointment.Appointment, error)
	// FindOverlapping returns ids of non-cancelled appointments for the same
	// (tenant, clinician) whose half-open range intersects [startsAt, endsAt),
	// excluding excludeID (pass uuid.Nil to exclude nothing).
	FindOverlapping(ctx context.Context, tx DBTX, tenantID, clinicianID uuid.UUID, startsAt, endsAt time.Time, excludeID uuid.UUID) ([]uuid.UUID, error)
	UpdateRange(ctx context.Context, tx DBTX, tenantID, id uuid.UUID, startsAt, endsAt time.Time) error
	Cancel(ctx context.Context, tx DBTX, tenantID, id uuid.UUID) error
}

type AuditLogRepository interface {
	// Create inserts an audit entry. Pass a tx to co-commit with a business
	// write, or nil to write outside any transaction (completion entries).
	Create(ctx context.Context, tx DBTX, e *audit.Entry) error
}

type OutboxRepository interface {
	// Append inserts an entry using tx so it co-commits with the business
	// write that produced it. tx must not be nil.
	Append(ctx context.Context, tx DBTX, e *outbox.Entry) error
	// ClaimBatch atomically leases up to limit claimable entries (pending,
	// unlocked or stale-locked), oldest first, incrementing attempts.
	ClaimBatch(ctx context.Context, limit int) ([]outbox.Entry, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
}

// ResourceLocker serializes conflicting writes against one logical
// resource (e.g. a clinician's calendar) for the duration of a transaction.
type ResourceLocker interface {
	AcquireResourceLock(ctx context.Context, tx DBTX, key string) error
}
