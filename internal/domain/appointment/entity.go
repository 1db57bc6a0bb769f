package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an appointment.
// Appointments are never hard-deleted; cancellation is a status change.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Appointment is a booked time slot on one clinician's calendar.
// Invariant: no two non-cancelled appointments for the same
// (tenant, clinician) may have overlapping [StartsAt, EndsAt) ranges.
type Appointment struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	ClinicianID  uuid.UUID `json:"clinician_id"`
	PatientID    uuid.UUID `json:"patient_id"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email,omitempty"`
	PatientPhone string    `json:"patient_phone,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Status       Status    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Appointment) IsCancelled() bool {
	return a.Status == StatusCancelled
}

// Overlaps reports whether two half-open ranges [aStart, aEnd) and
// [bStart, bEnd) intersect. Ranges that only touch at a boundary do not
// conflict: [10:00,10:30) and [10:30,11:00) are compatible.
// The overlap check enforced at write time is the SQL predicate in the
// appointment repository's FindOverlapping query; keep both in sync.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
