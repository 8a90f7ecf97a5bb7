package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasc/blood-bridge/internal/domain"
)

// ErrStatusConflict means the request was no longer in the expected status when updated.
var ErrStatusConflict = errors.New("blood request status changed concurrently")

// RequestFilter captures search parameters for blood requests.
type RequestFilter struct {
	RequestorEmail *string
	BloodGroups    []domain.BloodGroup
	City           *string
	Statuses       []domain.RequestStatus
	Urgencies      []domain.RequestUrgency
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// BloodRequestRepository encapsulates blood request persistence.
type BloodRequestRepository interface {
	Create(ctx context.Context, req *domain.BloodRequest) error
	GetByID(ctx context.Context, id string) (*domain.BloodRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.BloodRequest, error)
	// TransitionStatus moves a request from one status to another atomically.
	TransitionStatus(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.BloodRequest, error)
	CountActiveByGroup(ctx context.Context) (map[domain.BloodGroup]int, error)
	CountFulfilledSince(ctx context.Context, since time.Time) (map[domain.BloodGroup]int, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]string, error)
}

const requestColumns = `id, requestor_email, patient_name, hospital, contact_phone, blood_group, city,
               units_needed, urgency, status, notes, created_at, expires_at, updated_at`

type bloodRequestRepository struct {
	pool *pgxpool.Pool
}

// NewBloodRequestRepository instantiates repository.
func NewBloodRequestRepository(pool *pgxpool.Pool) BloodRequestRepository {
	return &bloodRequestRepository{pool: pool}
}

func (r *bloodRequestRepository) Create(ctx context.Context, req *domain.BloodRequest) error {
	const query = `
        INSERT INTO blood_requests (requestor_email, patient_name, hospital, contact_phone, blood_group, city,
                                    units_needed, urgency, status, notes, created_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		req.RequestorEmail,
		req.PatientName,
		req.Hospital,
		req.ContactPhone,
		req.BloodGroup,
		req.City,
		req.UnitsNeeded,
		req.Urgency,
		req.Status,
		req.Notes,
		req.CreatedAt,
		req.ExpiresAt,
	).Scan(&req.ID, &req.UpdatedAt)
}

func (r *bloodRequestRepository) GetByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM blood_requests WHERE id=$1`, id))
}

func (r *bloodRequestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.BloodRequest, error) {
	var where whereBuilder
	if filter.RequestorEmail != nil {
		where.add("LOWER(requestor_email)=LOWER($%d)", *filter.RequestorEmail)
	}
	where.addIn("blood_group", stringsOf(filter.BloodGroups))
	if filter.City != nil {
		where.add("LOWER(TRIM(city))=LOWER(TRIM($%d))", *filter.City)
	}
	where.addIn("status", stringsOf(filter.Statuses))
	where.addIn("urgency", stringsOf(filter.Urgencies))
	if filter.CreatedFrom != nil {
		where.add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		where.add("created_at <= $%d", *filter.CreatedTo)
	}

	query := `SELECT ` + requestColumns + ` FROM blood_requests` + where.sql() +
		` ORDER BY created_at DESC` + pageClause(filter.Limit, filter.Offset, 20)

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BloodRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *bloodRequestRepository) TransitionStatus(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.BloodRequest, error) {
	query := `UPDATE blood_requests SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2 RETURNING ` + requestColumns
	req, err := scanRequest(r.pool.QueryRow(ctx, query, id, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusConflict
	}
	return req, err
}

func (r *bloodRequestRepository) CountActiveByGroup(ctx context.Context) (map[domain.BloodGroup]int, error) {
	return r.countByGroup(ctx, `SELECT blood_group, COUNT(*) FROM blood_requests WHERE status='Active' GROUP BY blood_group`)
}

func (r *bloodRequestRepository) CountFulfilledSince(ctx context.Context, since time.Time) (map[domain.BloodGroup]int, error) {
	return r.countByGroup(ctx,
		`SELECT blood_group, COUNT(*) FROM blood_requests WHERE status='Fulfilled' AND updated_at >= $1 GROUP BY blood_group`,
		since)
}

func (r *bloodRequestRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE blood_requests SET status='Expired', updated_at=NOW()
         WHERE status='Active' AND expires_at <= $1 RETURNING id`, now)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *bloodRequestRepository) countByGroup(ctx context.Context, query string, args ...any) (map[domain.BloodGroup]int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.BloodGroup]int)
	for rows.Next() {
		var bg domain.BloodGroup
		var n int
		if err := rows.Scan(&bg, &n); err != nil {
			return nil, err
		}
		counts[bg] = n
	}
	return counts, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.BloodRequest, error) {
	var req domain.BloodRequest
	if err := row.Scan(
		&req.ID,
		&req.RequestorEmail,
		&req.PatientName,
		&req.Hospital,
		&req.ContactPhone,
		&req.BloodGroup,
		&req.City,
		&req.UnitsNeeded,
		&req.Urgency,
		&req.Status,
		&req.Notes,
		&req.CreatedAt,
		&req.ExpiresAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
