package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hms-server/internal/domain/appointment"
	"hms-server/internal/domain/audit"
	"hms-server/internal/domain/outbox"
	"hms-server/internal/events"
	"hms-server/internal/queue"
	"hms-server/internal/repository"
	"hms-server/pkg/logger"
)

const summaryTimeout = 5 * time.Second

// AppointmentGetter re-fetches current aggregate state. The job payload
// is only a hint; time may have passed since the transaction committed.
type AppointmentGetter interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*appointment.Appointment, error)
}

// Notifier sends patient notifications. Both channels are best-effort,
// independently failable and non-transactional.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) (string, error)
	SendSMS(ctx context.Context, to, message string) (string, error)
}

// Summarizer optionally produces an AI text enrichment for the
// notification. A missing or erroring result is logged, never fatal.
type Summarizer interface {
	GenerateSummary(ctx context.Context, prompt string) (string, error)
}

// FanoutPublisher pushes a processed event to live subscribers.
type FanoutPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Dispatcher holds the per-event-type handlers invoked by the dispatch
// queue consumer. Each handler re-fetches state, invokes capabilities,
// writes a completion audit entry and marks the outbox row.
type Dispatcher struct {
	appts      AppointmentGetter
	marks      repository.OutboxRepository
	audit      repository.AuditLogRepository
	notifier   Notifier
	summarizer Summarizer
	fanout     FanoutPublisher
	log        *logger.Logger
}

func NewDispatcher(
	appts AppointmentGetter,
	marks repository.OutboxRepository,
	auditRepo repository.AuditLogRepository,
	notifier Notifier,
	summarizer Summarizer,
	fanout FanoutPublisher,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		appts:      appts,
		marks:      marks,
		audit:      auditRepo,
		notifier:   notifier,
		summarizer: summarizer,
		fanout:     fanout,
		log:        log,
	}
}

// Register wires one handler per event type onto the consumer.
func (d *Dispatcher) Register(c *queue.Consumer) {
	c.OnJob(outbox.EventAppointmentCreated, d.handle("booked", "Your appointment is confirmed"))
	c.OnJob(outbox.EventAppointmentRescheduled, d.handle("rescheduled", "Your appointment was rescheduled"))
	c.OnJob(outbox.EventAppointmentCancelled, d.handle("cancelled", "Your appointment was cancelled"))
}

func (d *Dispatcher) handle(verb, subject string) queue.HandlerFunc {
	return func(ctx context.Context, job queue.Job) error {
		appt, err := d.appts.GetByID(ctx, job.TenantID, job.AggregateID)
		if err != nil {
			wrapped := fmt.Errorf("refetch appointment %s: %w", job.AggregateID, err)
			d.markFailed(ctx, job.ID, wrapped)
			return wrapped
		}

		body := d.buildMessage(ctx, verb, appt)
		d.notify(ctx, appt, subject, body)
		d.writeCompletionAudit(ctx, job, appt)

		if err := d.marks.MarkProcessed(ctx, job.ID); err != nil {
			wrapped := fmt.Errorf("mark outbox entry %s processed: %w", job.ID, err)
			d.markFailed(ctx, job.ID, wrapped)
			return wrapped
		}

		d.publishFanout(ctx, job, appt)
		return nil
	}
}

// buildMessage renders the notification text, enriched with an AI summary
// when a summarizer is configured and responds within its deadline.
func (d *Dispatcher) buildMessage(ctx context.Context, verb string, appt *appointment.Appointment) string {
	msg := fmt.Sprintf("Hi %s, your appointment on %s has been %s.",
		appt.PatientName, appt.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST"), verb)

	if d.summarizer == nil {
		return msg
	}
	sctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	prompt := fmt.Sprintf("Write one friendly sentence for a patient whose appointment at %s was %s. Notes: %s",
		appt.StartsAt.Format(time.RFC1123), verb, appt.Notes)
	summary, err := d.summarizer.GenerateSummary(sctx, prompt)
	if err != nil {
		d.log.Warnf("summary enrichment skipped for appointment %s: %v", appt.ID, err)
		return msg
	}
	return msg + " " + summary
}

// notify attempts each configured channel independently; one channel
// failing does not stop the others and never fails the handler.
func (d *Dispatcher) notify(ctx context.Context, appt *appointment.Appointment, subject, body string) {
	if d.notifier == nil {
		return
	}
	if appt.PatientEmail != "" {
		if id, err := d.notifier.SendEmail(ctx, appt.PatientEmail, subject, "<p>"+body+"</p>"); err != nil {
			d.log.Warnf("email to %s failed for appointment %s: %v", appt.PatientEmail, appt.ID, err)
		} else {
			d.log.Infof("email %s sent for appointment %s", id, appt.ID)
		}
	}
	if appt.PatientPhone != "" {
		if id, err := d.notifier.SendSMS(ctx, appt.PatientPhone, body); err != nil {
			d.log.Warnf("sms to %s failed for appointment %s: %v", appt.PatientPhone, appt.ID, err)
		} else {
			d.log.Infof("sms %s sent for appointment %s", id, appt.ID)
		}
	}
}

// writeCompletionAudit is best-effort; its failure must not mask the
// handler's primary result.
func (d *Dispatcher) writeCompletionAudit(ctx context.Context, job queue.Job, appt *appointment.Appointment) {
	payload, err := json.Marshal(map[string]any{
		"outbox_id":  job.ID,
		"event_type": job.Name,
		"status":     string(appt.Status),
	})
	if err != nil {
		return
	}
	entry := audit.NewEntry(job.TenantID, job.AggregateID, job.Name+".delivered", payload, uuid.Nil)
	if err := d.audit.Create(ctx, nil, entry); err != nil {
		d.log.Warnf("completion audit for outbox entry %s failed: %v", job.ID, err)
	}
}

func (d *Dispatcher) publishFanout(ctx context.Context, job queue.Job, appt *appointment.Appointment) {
	if d.fanout == nil {
		return
	}
	snapshot, err := json.Marshal(appt)
	if err != nil {
		return
	}
	payload, err := json.Marshal(events.Envelope{
		EventType:     job.Name,
		AggregateType: job.AggregateType,
		AggregateID:   job.AggregateID.String(),
		OccurredAt:    time.Now().UTC(),
		Payload:       snapshot,
	})
	if err != nil {
		return
	}
	channel := "channel:tenant:" + job.TenantID.String() + ":appointments"
	if err := d.fanout.Publish(ctx, channel, payload); err != nil {
		d.log.Warnf("fanout publish for appointment %s failed: %v", appt.ID, err)
	}
}

func (d *Dispatcher) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	if err := d.marks.MarkFailed(ctx, id, cause.Error()); err != nil {
		d.log.Errorf("mark outbox entry %s failed: %v", id, err)
	}
}
