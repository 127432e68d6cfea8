package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cargolink/portal-backend/internal/models"
)

// ActivationRepository handles account activation request operations
type ActivationRepository struct {
	db DB
}

// NewActivationRepository creates a new activation repository
func NewActivationRepository(db DB) *ActivationRepository {
	return &ActivationRepository{
		db: db,
	}
}

// CreateRequest records a new pending activation request. The partial unique
// index on (user_id) WHERE status = 'pending' rejects a second concurrent
// pending row for the same user.
func (r *ActivationRepository) CreateRequest(userID uuid.UUID, companyName, authorizationLetter, idDocument string) (*models.ActivationRequest, error) {
	req := &models.ActivationRequest{
		ID:                  uuid.New(),
		UserID:              userID,
		CompanyName:         companyName,
		AuthorizationLetter: authorizationLetter,
		IDDocument:          idDocument,
		Status:              models.ActivationStatusPending,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}

	query := `
		INSERT INTO account_activation_requests (
			id, user_id, company_name, authorization_letter, id_document,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		query,
		req.ID,
		req.UserID,
		req.CompanyName,
		req.AuthorizationLetter,
		req.IDDocument,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation request: %w", err)
	}

	return req, nil
}

// GetRequestByID retrieves an activation request by ID
func (r *ActivationRepository) GetRequestByID(id uuid.UUID) (*models.ActivationRequest, error) {
	var req models.ActivationRequest

	query := `
		SELECT id, user_id, company_name, authorization_letter, id_document,
		       status, reviewed_by, review_notes, reviewed_at,
		       created_at, updated_at
		FROM account_activation_requests
		WHERE id = $1
	`

	err := r.db.Get(&req, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get activation request: %w", err)
	}

	return &req, nil
}

// GetLatestRequestByUser retrieves the most recent activation request for a user
func (r *ActivationRepository) GetLatestRequestByUser(userID uuid.UUID) (*models.ActivationRequest, error) {
	var req models.ActivationRequest

	query := `
		SELECT id, user_id, company_name, authorization_letter, id_document,
		       status, reviewed_by, review_notes, reviewed_at,
		       created_at, updated_at
		FROM account_activation_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Get(&req, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest activation request: %w", err)
	}

	return &req, nil
}

// GetRequestForUpdateTx locks an activation request row inside a transaction
func (r *ActivationRepository) GetRequestForUpdateTx(tx *sqlx.Tx, id uuid.UUID) (*models.ActivationRequest, error) {
	var req models.ActivationRequest

	query := `
		SELECT id, user_id, company_name, authorization_letter, id_document,
		       status, reviewed_by, review_notes, reviewed_at,
		       created_at, updated_at
		FROM account_activation_requests
		WHERE id = $1
		FOR UPDATE
	`

	err := tx.Get(&req, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock activation request: %w", err)
	}

	return &req, nil
}

// ListPendingRequests retrieves pending activation requests oldest-first
func (r *ActivationRepository) ListPendingRequests(limit, offset int) ([]*models.ActivationRequest, error) {
	var requests []*models.ActivationRequest

	query := `
		SELECT id, user_id, company_name, authorization_letter, id_document,
		       status, reviewed_by, review_notes, reviewed_at,
		       created_at, updated_at
		FROM account_activation_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`

	err := r.db.Select(&requests, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending activation requests: %w", err)
	}

	return requests, nil
}

// CountPendingRequests returns the number of pending activation requests
func (r *ActivationRepository) CountPendingRequests() (int, error) {
	var count int

	err := r.db.QueryRow(`SELECT COUNT(*) FROM account_activation_requests WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending activation requests: %w", err)
	}

	return count, nil
}

// ReviewRequestTx records the reviewer's decision inside a transaction
func (r *ActivationRepository) ReviewRequestTx(tx *sqlx.Tx, id uuid.UUID, status models.ActivationStatus, notes string, reviewerID uuid.UUID) error {
	query := `
		UPDATE account_activation_requests
		SET status = $1,
		    review_notes = NULLIF($2, ''),
		    reviewed_by = $3,
		    reviewed_at = $4,
		    updated_at = $4
		WHERE id = $5
	`

	result, err := tx.Exec(query, status, notes, reviewerID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to review activation request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("activation request not found")
	}

	return nil
}
