package queue

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Job is the unit handed to the dispatch queue: one claimed outbox entry.
// ID is the outbox entry id and doubles as the broker message id.
type Job struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
}
