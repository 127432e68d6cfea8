package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cargolink/portal-backend/internal/models"
)

// DocumentRepository handles document database operations
type DocumentRepository struct {
	db DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{
		db: db,
	}
}

// CreateDocument records a freshly uploaded file in pending state
func (r *DocumentRepository) CreateDocument(ownerID, vehicleID uuid.UUID, docType models.DocumentType, fileName, filePath string) (*models.Document, error) {
	doc := &models.Document{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		VehicleID: vehicleID,
		Type:      docType,
		FileName:  fileName,
		FilePath:  filePath,
		Status:    models.DocumentStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO documents (
			id, owner_id, vehicle_id, doc_type, file_name, file_path,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(
		query,
		doc.ID,
		doc.OwnerID,
		doc.VehicleID,
		doc.Type,
		doc.FileName,
		doc.FilePath,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return doc, nil
}

// GetDocumentByID retrieves a document by ID
func (r *DocumentRepository) GetDocumentByID(id uuid.UUID) (*models.Document, error) {
	var doc models.Document

	query := `
		SELECT id, owner_id, vehicle_id, doc_type, file_name, file_path,
		       status, remarks, reviewed_by, reviewed_at,
		       created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	err := r.db.Get(&doc, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document by ID: %w", err)
	}

	return &doc, nil
}

// GetDocumentByVehicleAndType retrieves the document of a given type for a vehicle
func (r *DocumentRepository) GetDocumentByVehicleAndType(vehicleID uuid.UUID, docType models.DocumentType) (*models.Document, error) {
	var doc models.Document

	query := `
		SELECT id, owner_id, vehicle_id, doc_type, file_name, file_path,
		       status, remarks, reviewed_by, reviewed_at,
		       created_at, updated_at
		FROM documents
		WHERE vehicle_id = $1 AND doc_type = $2
	`

	err := r.db.Get(&doc, query, vehicleID, docType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document by type: %w", err)
	}

	return &doc, nil
}

// ListDocumentsByVehicle retrieves all documents attached to a vehicle
func (r *DocumentRepository) ListDocumentsByVehicle(vehicleID uuid.UUID) ([]*models.Document, error) {
	var docs []*models.Document

	query := `
		SELECT id, owner_id, vehicle_id, doc_type, file_name, file_path,
		       status, remarks, reviewed_by, reviewed_at,
		       created_at, updated_at
		FROM documents
		WHERE vehicle_id = $1
		ORDER BY created_at ASC
	`

	err := r.db.Select(&docs, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by vehicle: %w", err)
	}

	return docs, nil
}

// ListDocumentsByVehicleTx reads the document set inside a transaction.
// Used by review decisions after the vehicle row is locked.
func (r *DocumentRepository) ListDocumentsByVehicleTx(tx *sqlx.Tx, vehicleID uuid.UUID) ([]*models.Document, error) {
	var docs []*models.Document

	query := `
		SELECT id, owner_id, vehicle_id, doc_type, file_name, file_path,
		       status, remarks, reviewed_by, reviewed_at,
		       created_at, updated_at
		FROM documents
		WHERE vehicle_id = $1
		ORDER BY created_at ASC
	`

	err := tx.Select(&docs, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by vehicle: %w", err)
	}

	return docs, nil
}

// ReplaceDocumentFile swaps in a re-uploaded file and resets review state
func (r *DocumentRepository) ReplaceDocumentFile(id uuid.UUID, fileName, filePath string) error {
	query := `
		UPDATE documents
		SET file_name = $1,
		    file_path = $2,
		    status = 'pending',
		    remarks = NULL,
		    reviewed_by = NULL,
		    reviewed_at = NULL,
		    updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.Exec(query, fileName, filePath, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to replace document file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document not found")
	}

	return nil
}

// MarkDocumentsPendingTx forces every non-approved document of a vehicle to
// pending. Runs when the owner submits the vehicle for review.
func (r *DocumentRepository) MarkDocumentsPendingTx(tx *sqlx.Tx, vehicleID uuid.UUID) error {
	query := `
		UPDATE documents
		SET status = 'pending',
		    updated_at = $1
		WHERE vehicle_id = $2
		  AND status <> 'approved'
	`

	_, err := tx.Exec(query, time.Now(), vehicleID)
	if err != nil {
		return fmt.Errorf("failed to mark documents pending: %w", err)
	}

	return nil
}

// ReviewDocumentTx records a staff decision for a single document
func (r *DocumentRepository) ReviewDocumentTx(tx *sqlx.Tx, id uuid.UUID, status models.DocumentStatus, remarks string, reviewerID uuid.UUID) error {
	query := `
		UPDATE documents
		SET status = $1,
		    remarks = NULLIF($2, ''),
		    reviewed_by = $3,
		    reviewed_at = $4,
		    updated_at = $4
		WHERE id = $5
	`

	result, err := tx.Exec(query, status, remarks, reviewerID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to review document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document not found")
	}

	return nil
}

// DeleteDocument removes a document row
func (r *DocumentRepository) DeleteDocument(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document not found")
	}

	return nil
}
