package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasc/blood-bridge/internal/domain"
)

// ActivityFilter narrows activity log listings.
type ActivityFilter struct {
	Actions   []domain.ActivityAction
	ActorType *domain.SubjectType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// ActivityLogRepository stores audit entries.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter) ([]domain.ActivityLog, error)
	// ForEach streams every matching entry, oldest first, ignoring Limit and Offset.
	ForEach(ctx context.Context, filter ActivityFilter, fn func(domain.ActivityLog) error) error
}

const activityColumns = `id, actor_type, actor_id, action, entity_type, entity_id, details, created_at`

type activityLogRepository struct {
	pool *pgxpool.Pool
}

// NewActivityLogRepository builds repository.
func NewActivityLogRepository(pool *pgxpool.Pool) ActivityLogRepository {
	return &activityLogRepository{pool: pool}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	const query = `
        INSERT INTO activity_logs (actor_type, actor_id, action, entity_type, entity_id, details)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	return r.pool.QueryRow(ctx, query,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		details,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityFilter) ([]domain.ActivityLog, error) {
	where := activityWhere(filter)
	query := `SELECT ` + activityColumns + ` FROM activity_logs` + where.sql() +
		` ORDER BY created_at DESC, id DESC` + pageClause(filter.Limit, filter.Offset, 50)

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityLog
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *activityLogRepository) ForEach(ctx context.Context, filter ActivityFilter, fn func(domain.ActivityLog) error) error {
	where := activityWhere(filter)
	rows, err := r.pool.Query(ctx, `SELECT `+activityColumns+` FROM activity_logs`+where.sql()+` ORDER BY created_at, id`, where.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return rows.Err()
}

func activityWhere(filter ActivityFilter) *whereBuilder {
	where := &whereBuilder{}
	where.addIn("action", stringsOf(filter.Actions))
	if filter.ActorType != nil {
		where.add("actor_type=$%d", *filter.ActorType)
	}
	if filter.From != nil {
		where.add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.add("created_at <= $%d", *filter.To)
	}
	return where
}

func scanActivity(row pgx.Row) (domain.ActivityLog, error) {
	var entry domain.ActivityLog
	err := row.Scan(
		&entry.ID,
		&entry.ActorType,
		&entry.ActorID,
		&entry.Action,
		&entry.EntityType,
		&entry.EntityID,
		&entry.Details,
		&entry.CreatedAt,
	)
	return entry, err
}
