package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasc/blood-bridge/internal/domain"
)

// DonorFilter captures admin listing parameters.
type DonorFilter struct {
	BloodGroups   []domain.BloodGroup
	City          *string
	Verified      *bool
	Available     *bool
	Active        *bool
	EmailVerified *bool
	SearchTerm    *string
	Limit         int
	Offset        int
}

// DonorRepository defines persistence access for donors.
type DonorRepository interface {
	Create(ctx context.Context, donor *domain.Donor) error
	// Update writes the mutable profile and flags. LastDonationDate is refreshed from the row, never written.
	Update(ctx context.Context, donor *domain.Donor) error
	GetByID(ctx context.Context, id string) (*domain.Donor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Donor, error)
	GetByVerifyToken(ctx context.Context, token string) (*domain.Donor, error)
	List(ctx context.Context, filter DonorFilter) ([]domain.Donor, error)
	// ForEach streams every donor, oldest registration first, without paging.
	ForEach(ctx context.Context, fn func(domain.Donor) error) error
	// ListMatchCandidates returns, in one read, the listed donors in groups and (when non-empty) city.
	ListMatchCandidates(ctx context.Context, groups []domain.BloodGroup, city string) ([]domain.Donor, error)
	// ListProfiles returns every donor projection needed for inventory statistics in one read.
	ListProfiles(ctx context.Context) ([]domain.Donor, error)
	CityExists(ctx context.Context, city string) (bool, error)
	SetLastDonation(ctx context.Context, id string, at time.Time) error
}

const donorColumns = `id, name, email, phone, password_hash, gender, blood_group, city, last_donation_date,
               is_available, is_verified, is_active, email_verified, email_verify_token, created_at, updated_at`

type donorRepository struct {
	pool *pgxpool.Pool
}

// NewDonorRepository returns a Postgres-backed implementation.
func NewDonorRepository(pool *pgxpool.Pool) DonorRepository {
	return &donorRepository{pool: pool}
}

func (r *donorRepository) Create(ctx context.Context, donor *domain.Donor) error {
	const query = `
        INSERT INTO donors (name, email, phone, password_hash, gender, blood_group, city, last_donation_date,
                            is_available, is_verified, is_active, email_verified, email_verify_token)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		donor.Name,
		donor.Email,
		donor.Phone,
		donor.PasswordHash,
		donor.Gender,
		donor.BloodGroup,
		donor.City,
		donor.LastDonationDate,
		donor.IsAvailable,
		donor.IsVerified,
		donor.IsActive,
		donor.EmailVerified,
		donor.EmailVerifyToken,
	).Scan(&donor.ID, &donor.CreatedAt, &donor.UpdatedAt)
}

// last_donation_date is only written by SetLastDonation and the donation insert.
const updateDonorQuery = `
        UPDATE donors SET name=$1, phone=$2, password_hash=$3, gender=$4, blood_group=$5, city=$6,
            is_available=$7, is_verified=$8, is_active=$9, email_verified=$10,
            email_verify_token=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING last_donation_date, updated_at`

func (r *donorRepository) Update(ctx context.Context, donor *domain.Donor) error {
	err := r.pool.QueryRow(ctx, updateDonorQuery,
		donor.Name,
		donor.Phone,
		donor.PasswordHash,
		donor.Gender,
		donor.BloodGroup,
		donor.City,
		donor.IsAvailable,
		donor.IsVerified,
		donor.IsActive,
		donor.EmailVerified,
		donor.EmailVerifyToken,
		donor.ID,
	).Scan(&donor.LastDonationDate, &donor.UpdatedAt)
	return err
}

func (r *donorRepository) GetByID(ctx context.Context, id string) (*domain.Donor, error) {
	return scanDonor(r.pool.QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE id=$1`, id))
}

func (r *donorRepository) GetByEmail(ctx context.Context, email string) (*domain.Donor, error) {
	return scanDonor(r.pool.QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *donorRepository) GetByVerifyToken(ctx context.Context, token string) (*domain.Donor, error) {
	return scanDonor(r.pool.QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE email_verify_token=$1`, token))
}

func (r *donorRepository) List(ctx context.Context, filter DonorFilter) ([]domain.Donor, error) {
	var where whereBuilder
	where.addIn("blood_group", stringsOf(filter.BloodGroups))
	if filter.City != nil {
		where.add("LOWER(TRIM(city))=LOWER(TRIM($%d))", *filter.City)
	}
	if filter.Verified != nil {
		where.add("is_verified=$%d", *filter.Verified)
	}
	if filter.Available != nil {
		where.add("is_available=$%d", *filter.Available)
	}
	if filter.Active != nil {
		where.add("is_active=$%d", *filter.Active)
	}
	if filter.EmailVerified != nil {
		where.add("email_verified=$%d", *filter.EmailVerified)
	}
	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		where.add("(name ILIKE '%%' || $%[1]d || '%%' OR email ILIKE '%%' || $%[1]d || '%%')", *filter.SearchTerm)
	}
	query := `SELECT ` + donorColumns + ` FROM donors` + where.sql() +
		` ORDER BY created_at DESC` + pageClause(filter.Limit, filter.Offset, 20)
	return r.query(ctx, query, where.args...)
}

func (r *donorRepository) ListMatchCandidates(ctx context.Context, groups []domain.BloodGroup, city string) ([]domain.Donor, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	var where whereBuilder
	where.clauses = append(where.clauses, "is_active", "is_verified", "is_available", "email_verified")
	where.addIn("blood_group", stringsOf(groups))
	if city != "" {
		where.add("LOWER(TRIM(city))=LOWER(TRIM($%d))", city)
	}
	return r.query(ctx, `SELECT `+donorColumns+` FROM donors`+where.sql()+` ORDER BY last_donation_date ASC NULLS FIRST`, where.args...)
}

func (r *donorRepository) ListProfiles(ctx context.Context) ([]domain.Donor, error) {
	return r.query(ctx, `SELECT `+donorColumns+` FROM donors`)
}

func (r *donorRepository) CityExists(ctx context.Context, city string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM donors WHERE LOWER(TRIM(city))=LOWER(TRIM($1)))`, city,
	).Scan(&exists)
	return exists, err
}

// SetLastDonation only moves the date forward so backfilled history cannot reopen a cooldown.
func (r *donorRepository) SetLastDonation(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE donors SET last_donation_date=$2, updated_at=NOW()
        WHERE id=$1 AND (last_donation_date IS NULL OR last_donation_date < $2)`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM donors WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
	}
	return nil
}

func (r *donorRepository) ForEach(ctx context.Context, fn func(domain.Donor) error) error {
	rows, err := r.pool.Query(ctx, `SELECT `+donorColumns+` FROM donors ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return err
		}
		if err := fn(*donor); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *donorRepository) query(ctx context.Context, query string, args ...any) ([]domain.Donor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *donor)
	}
	return result, rows.Err()
}

func scanDonor(row pgx.Row) (*domain.Donor, error) {
	var donor domain.Donor
	if err := row.Scan(
		&donor.ID,
		&donor.Name,
		&donor.Email,
		&donor.Phone,
		&donor.PasswordHash,
		&donor.Gender,
		&donor.BloodGroup,
		&donor.City,
		&donor.LastDonationDate,
		&donor.IsAvailable,
		&donor.IsVerified,
		&donor.IsActive,
		&donor.EmailVerified,
		&donor.EmailVerifyToken,
		&donor.CreatedAt,
		&donor.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &donor, nil
}
