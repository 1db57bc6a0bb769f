package repository

import (
	"context"

	"hms-server/internal/domain/audit"
)

type auditLogRepository struct {
	db DBTX
}

func NewAuditLogRepository(db DBTX) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, tx DBTX, e *audit.Entry) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.Exec(ctx, `
        INSERT INTO audit_log (id, tenant_id, aggregate_id, event, payload, created_at, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `,
		e.ID,
		e.TenantID,
		e.AggregateID,
		e.Event,
		e.Payload,
		e.CreatedAt,
		e.CreatedBy,
	)
	return err
}
