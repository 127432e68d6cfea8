package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cargolink/portal-backend/internal/models"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint error
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{
		db: db,
	}
}

// CreateProfile creates a new customer profile pending activation
func (r *ProfileRepository) CreateProfile(fullName, email, phone, company, passwordHash string) (*models.Profile, error) {
	profile := &models.Profile{
		ID:            uuid.New(),
		FullName:      fullName,
		Email:         email,
		Phone:         models.NewNullString(phone),
		Company:       models.NewNullString(company),
		Role:          models.RoleCustomer,
		AccountStatus: models.AccountPendingActivation,
		PasswordHash:  passwordHash,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `
		INSERT INTO profiles (
			id, full_name, email, phone, company, role,
			account_status, password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(
		query,
		profile.ID,
		profile.FullName,
		profile.Email,
		profile.Phone,
		profile.Company,
		profile.Role,
		profile.AccountStatus,
		profile.PasswordHash,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

// GetProfileByEmail retrieves a profile by email
func (r *ProfileRepository) GetProfileByEmail(email string) (*models.Profile, error) {
	var profile models.Profile

	query := `
		SELECT id, full_name, email, phone, company, role,
		       account_status, password_hash, last_login_at,
		       created_at, updated_at
		FROM profiles
		WHERE email = $1
	`

	err := r.db.Get(&profile, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Profile not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}

	return &profile, nil
}

// GetProfileByID retrieves a profile by ID
func (r *ProfileRepository) GetProfileByID(id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile

	query := `
		SELECT id, full_name, email, phone, company, role,
		       account_status, password_hash, last_login_at,
		       created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	err := r.db.Get(&profile, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}

	return &profile, nil
}

// UpdateProfileInfo updates the mutable profile fields
func (r *ProfileRepository) UpdateProfileInfo(id uuid.UUID, fullName, phone, company string) error {
	query := `
		UPDATE profiles
		SET full_name = $1,
		    phone = $2,
		    company = $3,
		    updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(query, fullName, phone, company, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("profile not found")
	}

	return nil
}

// UpdateRole changes a profile's role
func (r *ProfileRepository) UpdateRole(id uuid.UUID, role models.Role) error {
	if !models.ValidRole(role) {
		return fmt.Errorf("invalid role: %s", role)
	}

	query := `
		UPDATE profiles
		SET role = $1,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, role, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("profile not found")
	}

	return nil
}

// UpdateAccountStatus changes a profile's account status
func (r *ProfileRepository) UpdateAccountStatus(id uuid.UUID, status models.AccountStatus) error {
	if !models.ValidAccountStatus(status) {
		return fmt.Errorf("invalid account status: %s", status)
	}

	query := `
		UPDATE profiles
		SET account_status = $1,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("profile not found")
	}

	return nil
}

// UpdateAccountStatusTx changes account status inside an existing transaction
func (r *ProfileRepository) UpdateAccountStatusTx(tx *sqlx.Tx, id uuid.UUID, status models.AccountStatus) error {
	query := `
		UPDATE profiles
		SET account_status = $1,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("profile not found")
	}

	return nil
}

// UpdateLastLogin stamps the profile's last login time
func (r *ProfileRepository) UpdateLastLogin(id uuid.UUID) error {
	query := `
		UPDATE profiles
		SET last_login_at = $1,
		    updated_at = $1
		WHERE id = $2
	`

	_, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// ListProfiles retrieves all profiles with pagination
func (r *ProfileRepository) ListProfiles(limit, offset int) ([]*models.Profile, error) {
	var profiles []*models.Profile

	query := `
		SELECT id, full_name, email, phone, company, role,
		       account_status, password_hash, last_login_at,
		       created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.Select(&profiles, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	return profiles, nil
}

// CountProfilesByStatus returns profile counts grouped by account status
func (r *ProfileRepository) CountProfilesByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT account_status, COUNT(*) FROM profiles GROUP BY account_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan profile count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile counts: %w", err)
	}

	return counts, nil
}
