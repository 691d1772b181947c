package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// AuditRepository persists applied state transitions.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListByTicket(ctx context.Context, ticketID int64, limit int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO triage_audit (id, ticket_id, queue_name, action, old_status, new_status, assignee_id, provenance, reason, dry_run)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.QueueName,
		entry.Action,
		entry.OldStatus,
		entry.NewStatus,
		entry.AssigneeID,
		entry.Provenance,
		entry.Reason,
		entry.DryRun,
	).Scan(&entry.CreatedAt)
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID int64, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, ticket_id, queue_name, action, old_status, new_status, assignee_id, provenance, reason, dry_run, created_at
        FROM triage_audit WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows pgx.Rows) ([]domain.AuditEntry, error) {
	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.QueueName,
			&entry.Action,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.AssigneeID,
			&entry.Provenance,
			&entry.Reason,
			&entry.DryRun,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
