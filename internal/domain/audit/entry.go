package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is an immutable audit record written once per mutating
// operation, inside the same transaction as the mutation itself.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	Event       string          `json:"event"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   uuid.UUID       `json:"created_by"`
}

func NewEntry(tenantID, aggregateID uuid.UUID, event string, payload []byte, actor uuid.UUID) *Entry {
	return &Entry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		AggregateID: aggregateID,
		Event:       event,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   actor,
	}
}
