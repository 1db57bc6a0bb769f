package outbox

import (
	"context"
	"time"

	"hms-server/internal/domain/outbox"
	"hms-server/internal/queue"
	"hms-server/internal/repository"
	"hms-server/pkg/logger"
)

// Enqueuer hands a claimed entry to the dispatch queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Relay continuously claims unprocessed outbox entries and enqueues them
// for asynchronous processing. Multiple relay instances coordinate only
// through the outbox table's lease-based claim: a relay that dies after
// claiming leaves a stale lock that another instance reclaims after the
// staleness window.
type Relay struct {
	store     repository.OutboxRepository
	enqueuer  Enqueuer
	log       *logger.Logger
	interval  time.Duration
	batchSize int
}

func NewRelay(store repository.OutboxRepository, enqueuer Enqueuer, interval time.Duration, batchSize int, log *logger.Logger) *Relay {
	return &Relay{
		store:     store,
		enqueuer:  enqueuer,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled. Each batch is processed to completion
// before the loop re-checks ctx, so shutdown never abandons an in-flight
// enqueue.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Infof("outbox relay started (interval=%s batch=%d)", r.interval, r.batchSize)
	for {
		select {
		case <-ctx.Done():
			r.log.Infof("outbox relay stopped")
			return
		case <-ticker.C:
			r.processBatch(ctx)
		}
	}
}

func (r *Relay) processBatch(ctx context.Context) {
	entries, err := r.store.ClaimBatch(ctx, r.batchSize)
	if err != nil {
		r.log.Errorf("outbox claim failed: %v", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	// The batch is already leased; enqueue it to completion even if ctx
	// is cancelled mid-batch. Otherwise shutdown would stamp the rest of
	// the batch with a spurious cancellation error.
	drainCtx := context.WithoutCancel(ctx)
	for _, e := range entries {
		r.relay(drainCtx, e)
	}
}

func (r *Relay) relay(ctx context.Context, e outbox.Entry) {
	job := queue.Job{
		ID:            e.ID,
		Name:          e.EventType,
		TenantID:      e.TenantID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       e.Payload,
	}
	if err := r.enqueuer.Enqueue(ctx, job); err != nil {
		// The entry stays unprocessed with its error recorded; it becomes
		// claimable again once the lock staleness window elapses.
		r.log.Errorf("enqueue outbox entry %s failed: %v", e.ID, err)
		if markErr := r.store.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
			r.log.Errorf("mark outbox entry %s failed: %v", e.ID, markErr)
		}
		return
	}
}
