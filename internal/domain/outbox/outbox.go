package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	AggregateAppointment = "appointment"

	EventAppointmentCreated     = "appointment.created"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCancelled   = "appointment.cancelled"
)

// LockStaleness is the soft-lease window. A claimed entry whose lock is
// older than this is assumed orphaned by a crashed relay and becomes
// claimable again.
const LockStaleness = 5 * time.Minute

// Entry is a domain event co-committed with the business write that
// produced it. Entries are never deleted in normal operation; they are
// retained for audit and replay.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LockedAt      *time.Time      `json:"locked_at,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

func NewEntry(tenantID, aggregateID uuid.UUID, eventType string, payload []byte) *Entry {
	return &Entry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		AggregateType: AggregateAppointment,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}
