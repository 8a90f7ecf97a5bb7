package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasc/blood-bridge/internal/domain"
)

// DonationRepository stores donation events.
type DonationRepository interface {
	// Record inserts the donation and advances the donor's last donation date in one transaction.
	Record(ctx context.Context, donation *domain.Donation) error
	ListByDonor(ctx context.Context, donorID string, limit, offset int) ([]domain.Donation, error)
}

type donationRepository struct {
	pool *pgxpool.Pool
}

// NewDonationRepository builds repository.
func NewDonationRepository(pool *pgxpool.Pool) DonationRepository {
	return &donationRepository{pool: pool}
}

func (r *donationRepository) Record(ctx context.Context, donation *domain.Donation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
            INSERT INTO donations (donor_id, request_id, donation_date, units, notes, recorded_by)
            VALUES ($1,$2,$3,$4,$5,$6)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insert,
			donation.DonorID,
			donation.RequestID,
			donation.DonationDate,
			donation.Units,
			donation.Notes,
			donation.RecordedBy,
		).Scan(&donation.ID, &donation.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
            UPDATE donors SET last_donation_date=$2, updated_at=NOW()
            WHERE id=$1 AND (last_donation_date IS NULL OR last_donation_date < $2)`,
			donation.DonorID, donation.DonationDate)
		return err
	})
}

func (r *donationRepository) ListByDonor(ctx context.Context, donorID string, limit, offset int) ([]domain.Donation, error) {
	query := `
        SELECT id, donor_id, request_id, donation_date, units, notes, recorded_by, created_at
        FROM donations WHERE donor_id=$1 ORDER BY donation_date DESC` + pageClause(limit, offset, 50)
	rows, err := r.pool.Query(ctx, query, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(
			&d.ID,
			&d.DonorID,
			&d.RequestID,
			&d.DonationDate,
			&d.Units,
			&d.Notes,
			&d.RecordedBy,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
