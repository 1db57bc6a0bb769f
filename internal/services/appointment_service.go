package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hms-server/internal/domain/appointment"
	"hms-server/internal/domain/audit"
	"hms-server/internal/domain/outbox"
	"hms-server/internal/repository"
	apperrors "hms-server/pkg/errors"
	"hms-server/pkg/logger"
)

type CreateAppointmentInput struct {
	TenantID     uuid.UUID
	ClinicianID  uuid.UUID
	PatientID    uuid.UUID
	PatientName  string
	PatientEmail string
	PatientPhone string
	StartsAt     time.Time
	EndsAt       time.Time
	Notes        string
	ActorID      uuid.UUID
}

type RescheduleAppointmentInput struct {
	TenantID      uuid.UUID
	AppointmentID uuid.UUID
	StartsAt      time.Time
	EndsAt        time.Time
	ActorID       uuid.UUID
}

type CancelAppointmentInput struct {
	TenantID      uuid.UUID
	AppointmentID uuid.UUID
	ActorID       uuid.UUID
	Reason        string
}

// eventPayload is the snapshot stored on audit and outbox rows. Handlers
// treat it as a hint and re-fetch current state before acting.
type eventPayload struct {
	Appointment *appointment.Appointment `json:"appointment"`
	OldStartsAt *time.Time               `json:"old_starts_at,omitempty"`
	OldEndsAt   *time.Time               `json:"old_ends_at,omitempty"`
	Reason      string                   `json:"reason,omitempty"`
}

// AppointmentService performs each domain mutation as one atomic
// transaction: advisory lock on the clinician, overlap check, mutation,
// audit entry and outbox entry all commit together or not at all.
type AppointmentService struct {
	db     repository.TxStarter
	locks  repository.ResourceLocker
	appts  repository.AppointmentRepository
	audit  repository.AuditLogRepository
	outbox repository.OutboxRepository
	log    *logger.Logger
}

func NewAppointmentService(
	db repository.TxStarter,
	locks repository.ResourceLocker,
	appts repository.AppointmentRepository,
	auditRepo repository.AuditLogRepository,
	outboxRepo repository.OutboxRepository,
	log *logger.Logger,
) *AppointmentService {
	return &AppointmentService{
		db:     db,
		locks:  locks,
		appts:  appts,
		audit:  auditRepo,
		outbox: outboxRepo,
		log:    log,
	}
}

func (s *AppointmentService) Create(ctx context.Context, in CreateAppointmentInput) (*appointment.Appointment, error) {
	if !in.StartsAt.Before(in.EndsAt) {
		return nil, fmt.Errorf("%w: starts_at must be before ends_at", apperrors.ErrInvalidInput)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.locks.AcquireResourceLock(ctx, tx, lockKey(in.TenantID, in.ClinicianID)); err != nil {
		return nil, fmt.Errorf("acquire clinician lock: %w", err)
	}

	conflictIDs, err := s.appts.FindOverlapping(ctx, tx, in.TenantID, in.ClinicianID, in.StartsAt, in.EndsAt, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	if len(conflictIDs) > 0 {
		return nil, &apperrors.ConflictError{IDs: conflictIDs}
	}

	now := time.Now().UTC()
	appt := &appointment.Appointment{
		ID:           uuid.New(),
		TenantID:     in.TenantID,
		ClinicianID:  in.ClinicianID,
		PatientID:    in.PatientID,
		PatientName:  in.PatientName,
		PatientEmail: in.PatientEmail,
		PatientPhone: in.PatientPhone,
		StartsAt:     in.StartsAt.UTC(),
		EndsAt:       in.EndsAt.UTC(),
		Status:       appointment.StatusScheduled,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.appts.Create(ctx, tx, appt); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := s.recordEvent(ctx, tx, appt, outbox.EventAppointmentCreated, in.ActorID, eventPayload{Appointment: appt}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.log.Infof("appointment %s created for clinician %s", appt.ID, appt.ClinicianID)
	return appt, nil
}

func (s *AppointmentService) Reschedule(ctx context.Context, in RescheduleAppointmentInput) (*appointment.Appointment, error) {
	if !in.StartsAt.Before(in.EndsAt) {
		return nil, fmt.Errorf("%w: starts_at must be before ends_at", apperrors.ErrInvalidInput)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := s.appts.GetForUpdate(ctx, tx, in.TenantID, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.IsCancelled() {
		return nil, apperrors.ErrNotFound
	}

	if err := s.locks.AcquireResourceLock(ctx, tx, lockKey(in.TenantID, appt.ClinicianID)); err != nil {
		return nil, fmt.Errorf("acquire clinician lock: %w", err)
	}

	conflictIDs, err := s.appts.FindOverlapping(ctx, tx, in.TenantID, appt.ClinicianID, in.StartsAt, in.EndsAt, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	if len(conflictIDs) > 0 {
		return nil, &apperrors.ConflictError{IDs: conflictIDs}
	}

	oldStart, oldEnd := appt.StartsAt, appt.EndsAt
	appt.StartsAt = in.StartsAt.UTC()
	appt.EndsAt = in.EndsAt.UTC()
	appt.UpdatedAt = time.Now().UTC()
	if err := s.appts.UpdateRange(ctx, tx, in.TenantID, appt.ID, appt.StartsAt, appt.EndsAt); err != nil {
		return nil, fmt.Errorf("update range: %w", err)
	}

	payload := eventPayload{Appointment: appt, OldStartsAt: &oldStart, OldEndsAt: &oldEnd}
	if err := s.recordEvent(ctx, tx, appt, outbox.EventAppointmentRescheduled, in.ActorID, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.log.Infof("appointment %s rescheduled to [%s, %s)", appt.ID, appt.StartsAt, appt.EndsAt)
	return appt, nil
}

// Cancel is idempotent: cancelling an already-cancelled appointment is a
// success with no new audit or outbox rows, so at-least-once delivery of
// cancel requests is safe.
func (s *AppointmentService) Cancel(ctx context.Context, in CancelAppointmentInput) (*appointment.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := s.appts.GetForUpdate(ctx, tx, in.TenantID, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.IsCancelled() {
		return appt, nil
	}

	if err := s.locks.AcquireResourceLock(ctx, tx, lockKey(in.TenantID, appt.ClinicianID)); err != nil {
		return nil, fmt.Errorf("acquire clinician lock: %w", err)
	}

	appt.Status = appointment.StatusCancelled
	appt.UpdatedAt = time.Now().UTC()
	if err := s.appts.Cancel(ctx, tx, in.TenantID, appt.ID); err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	payload := eventPayload{Appointment: appt, Reason: in.Reason}
	if err := s.recordEvent(ctx, tx, appt, outbox.EventAppointmentCancelled, in.ActorID, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.log.Infof("appointment %s cancelled", appt.ID)
	return appt, nil
}

func (s *AppointmentService) Get(ctx context.Context, tenantID, id uuid.UUID) (*appointment.Appointment, error) {
	return s.appts.GetByID(ctx, tenantID, id)
}

// recordEvent writes the audit entry and outbox entry for a mutation
// inside the same transaction as the mutation itself.
func (s *AppointmentService) recordEvent(ctx context.Context, tx repository.DBTX, appt *appointment.Appointment, eventType string, actor uuid.UUID, payload eventPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if err := s.audit.Create(ctx, tx, audit.NewEntry(appt.TenantID, appt.ID, eventType, raw, actor)); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	if err := s.outbox.Append(ctx, tx, outbox.NewEntry(appt.TenantID, appt.ID, eventType, raw)); err != nil {
		return fmt.Errorf("append outbox entry: %w", err)
	}
	return nil
}

func lockKey(tenantID, clinicianID uuid.UUID) string {
	return "clinician:" + tenantID.String() + ":" + clinicianID.String()
}
