package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cargolink/portal-backend/internal/models"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db DB) *InvoiceRepository {
	return &InvoiceRepository{
		db: db,
	}
}

// CreateRequest records a customer invoice request. The unique constraint on
// vehicle_id is the real guard against duplicates; callers should map a
// unique violation to a conflict error.
func (r *InvoiceRepository) CreateRequest(vehicleID, ownerID uuid.UUID) (*models.Invoice, error) {
	invoice := &models.Invoice{
		ID:          uuid.New(),
		VehicleID:   vehicleID,
		OwnerID:     ownerID,
		Status:      models.InvoiceStatusRequested,
		RequestDate: time.Now(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	query := `
		INSERT INTO invoices (
			id, vehicle_id, owner_id, status, request_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(
		query,
		invoice.ID,
		invoice.VehicleID,
		invoice.OwnerID,
		invoice.Status,
		invoice.RequestDate,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice request: %w", err)
	}

	return invoice, nil
}

// CreateIssuedTx inserts an invoice that is issued immediately, for staff
// issuing directly against an approved vehicle without a prior request.
func (r *InvoiceRepository) CreateIssuedTx(tx *sqlx.Tx, vehicleID, ownerID, issuedBy uuid.UUID, filePath string) (*models.Invoice, error) {
	now := time.Now()
	invoice := &models.Invoice{
		ID:          uuid.New(),
		VehicleID:   vehicleID,
		OwnerID:     ownerID,
		Status:      models.InvoiceStatusIssued,
		RequestDate: now,
		IssueDate:   models.NewNullTime(now),
		FilePath:    models.NewNullString(filePath),
		IssuedBy:    uuid.NullUUID{UUID: issuedBy, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO invoices (
			id, vehicle_id, owner_id, status, request_date, issue_date,
			file_path, issued_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(
		query,
		invoice.ID,
		invoice.VehicleID,
		invoice.OwnerID,
		invoice.Status,
		invoice.RequestDate,
		invoice.IssueDate,
		invoice.FilePath,
		invoice.IssuedBy,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create issued invoice: %w", err)
	}

	return invoice, nil
}

// MarkIssuedTx attaches the uploaded file to an existing request and flips it to issued
func (r *InvoiceRepository) MarkIssuedTx(tx *sqlx.Tx, id, issuedBy uuid.UUID, filePath string) error {
	now := time.Now()

	query := `
		UPDATE invoices
		SET status = 'issued',
		    issue_date = $1,
		    file_path = $2,
		    issued_by = $3,
		    updated_at = $1
		WHERE id = $4
	`

	result, err := tx.Exec(query, now, filePath, issuedBy, id)
	if err != nil {
		return fmt.Errorf("failed to mark invoice issued: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("invoice not found")
	}

	return nil
}

// UpdateStatus moves an invoice between non-terminal states (e.g. processing)
func (r *InvoiceRepository) UpdateStatus(id uuid.UUID, status models.InvoiceStatus) error {
	query := `
		UPDATE invoices
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("invoice not found")
	}

	return nil
}

// GetInvoiceByID retrieves an invoice by ID
func (r *InvoiceRepository) GetInvoiceByID(id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice

	query := `
		SELECT id, vehicle_id, owner_id, status, request_date, issue_date,
		       file_path, issued_by, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`

	err := r.db.Get(&invoice, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice by ID: %w", err)
	}

	return &invoice, nil
}

// GetInvoiceByVehicle retrieves the invoice for a vehicle, if any
func (r *InvoiceRepository) GetInvoiceByVehicle(vehicleID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice

	query := `
		SELECT id, vehicle_id, owner_id, status, request_date, issue_date,
		       file_path, issued_by, created_at, updated_at
		FROM invoices
		WHERE vehicle_id = $1
	`

	err := r.db.Get(&invoice, query, vehicleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice by vehicle: %w", err)
	}

	return &invoice, nil
}

// ListInvoicesByOwner retrieves all invoices belonging to a profile
func (r *InvoiceRepository) ListInvoicesByOwner(ownerID uuid.UUID) ([]*models.Invoice, error) {
	var invoices []*models.Invoice

	query := `
		SELECT id, vehicle_id, owner_id, status, request_date, issue_date,
		       file_path, issued_by, created_at, updated_at
		FROM invoices
		WHERE owner_id = $1
		ORDER BY request_date DESC
	`

	err := r.db.Select(&invoices, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices by owner: %w", err)
	}

	return invoices, nil
}

// ListInvoicesByStatus retrieves invoices in a given state
func (r *InvoiceRepository) ListInvoicesByStatus(status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error) {
	var invoices []*models.Invoice

	query := `
		SELECT id, vehicle_id, owner_id, status, request_date, issue_date,
		       file_path, issued_by, created_at, updated_at
		FROM invoices
		WHERE status = $1
		ORDER BY request_date DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.Select(&invoices, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices by status: %w", err)
	}

	return invoices, nil
}

// CountInvoicesByStatus returns invoice counts grouped by state
func (r *InvoiceRepository) CountInvoicesByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM invoices GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan invoice count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice counts: %w", err)
	}

	return counts, nil
}
