package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hms-server/internal/domain/appointment"
	apperrors "hms-server/pkg/errors"
)

const appointmentColumns = `id, tenant_id, clinician_id, patient_id, patient_name, patient_email, patient_phone, starts_at, ends_at, status, notes, created_at, updated_at`

type appointmentRepository struct {
	db DBTX
}

func NewAppointmentRepository(db DBTX) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, tx DBTX, a *appointment.Appointment) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.Exec(ctx, `
        INSERT INTO appointments (`+appointmentColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `,
		a.ID,
		a.TenantID,
		a.ClinicianID,
		a.PatientID,
		a.PatientName,
		a.PatientEmail,
		a.PatientPhone,
		a.StartsAt,
		a.EndsAt,
		a.Status,
		a.Notes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperrors.ErrInvalidInput
	}
	return err
}

func (r *appointmentRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*appointment.Appointment, error) {
	row := r.db.QueryRow(ctx, `
        SELECT `+appointmentColumns+`
        FROM appointments
        WHERE tenant_id = $1 AND id = $2
    `, tenantID, id)
	return scanAppointment(row)
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, tx DBTX, tenantID, id uuid.UUID) (*appointment.Appointment, error) {
	row := tx.QueryRow(ctx, `
        SELECT `+appointmentColumns+`
        FROM appointments
        WHERE tenant_id = $1 AND id = $2
        FOR UPDATE
    `, tenantID, id)
	return scanAppointment(row)
}

func (r *appointmentRepository) FindOverlapping(ctx context.Context, tx DBTX, tenantID, clinicianID uuid.UUID, startsAt, endsAt time.Time, excludeID uuid.UUID) ([]uuid.UUID, error) {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	// Half-open interval semantics: ranges conflict unless one entirely
	// precedes the other. Touching boundaries do not conflict. This is
	// the SQL form of appointment.Overlaps; keep both in sync.
	rows, err := execDB.Query(ctx, `
        SELECT id
        FROM appointments
        WHERE tenant_id = $1
          AND clinician_id = $2
          AND status = $3
          AND id <> $4
          AND NOT (ends_at <= $5 OR starts_at >= $6)
        ORDER BY starts_at ASC
    `, tenantID, clinicianID, appointment.StatusScheduled, excludeID, startsAt, endsAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *appointmentRepository) UpdateRange(ctx context.Context, tx DBTX, tenantID, id uuid.UUID, startsAt, endsAt time.Time) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	tag, err := execDB.Exec(ctx, `
        UPDATE appointments
        SET starts_at = $1, ends_at = $2, updated_at = $3
        WHERE tenant_id = $4 AND id = $5
    `, startsAt, endsAt, time.Now().UTC(), tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) Cancel(ctx context.Context, tx DBTX, tenantID, id uuid.UUID) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	tag, err := execDB.Exec(ctx, `
        UPDATE appointments
        SET status = $1, updated_at = $2
        WHERE tenant_id = $3 AND id = $4
    `, appointment.StatusCancelled, time.Now().UTC(), tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.ClinicianID,
		&a.PatientID,
		&a.PatientName,
		&a.PatientEmail,
		&a.PatientPhone,
		&a.StartsAt,
		&a.EndsAt,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
