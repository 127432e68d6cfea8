package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cargolink/portal-backend/internal/models"
)

// VehicleRepository handles vehicle database operations
type VehicleRepository struct {
	db DB
}

// NewVehicleRepository creates a new vehicle repository
func NewVehicleRepository(db DB) *VehicleRepository {
	return &VehicleRepository{
		db: db,
	}
}

// CreateVehicle registers a new vehicle in draft state
func (r *VehicleRepository) CreateVehicle(ownerID uuid.UUID, chassisNumber, make, model string) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		ChassisNumber: models.NormalizeChassisNumber(chassisNumber),
		Make:          models.NewNullString(make),
		Model:         models.NewNullString(model),
		Status:        models.VehicleStatusDraft,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `
		INSERT INTO vehicles (
			id, owner_id, chassis_number, make, model, status,
			documents_uploaded, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(
		query,
		vehicle.ID,
		vehicle.OwnerID,
		vehicle.ChassisNumber,
		vehicle.Make,
		vehicle.Model,
		vehicle.Status,
		vehicle.DocumentsUploaded,
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("vehicle with chassis number %s already exists: %w", vehicle.ChassisNumber, err)
		}
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	return vehicle, nil
}

// GetVehicleByID retrieves a vehicle by ID
func (r *VehicleRepository) GetVehicleByID(id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle

	query := `
		SELECT id, owner_id, chassis_number, make, model, status,
		       documents_uploaded, submitted_at, decided_at,
		       created_at, updated_at
		FROM vehicles
		WHERE id = $1
	`

	err := r.db.Get(&vehicle, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vehicle by ID: %w", err)
	}

	return &vehicle, nil
}

// GetVehicleByChassis retrieves a vehicle by chassis number
func (r *VehicleRepository) GetVehicleByChassis(chassisNumber string) (*models.Vehicle, error) {
	var vehicle models.Vehicle

	query := `
		SELECT id, owner_id, chassis_number, make, model, status,
		       documents_uploaded, submitted_at, decided_at,
		       created_at, updated_at
		FROM vehicles
		WHERE chassis_number = $1
	`

	err := r.db.Get(&vehicle, query, models.NormalizeChassisNumber(chassisNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vehicle by chassis: %w", err)
	}

	return &vehicle, nil
}

// GetVehicleForUpdateTx locks the vehicle row for the duration of the
// transaction. Review decisions take this lock before re-reading documents.
func (r *VehicleRepository) GetVehicleForUpdateTx(tx *sqlx.Tx, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle

	query := `
		SELECT id, owner_id, chassis_number, make, model, status,
		       documents_uploaded, submitted_at, decided_at,
		       created_at, updated_at
		FROM vehicles
		WHERE id = $1
		FOR UPDATE
	`

	err := tx.Get(&vehicle, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock vehicle row: %w", err)
	}

	return &vehicle, nil
}

// ListVehiclesByOwner retrieves all vehicles belonging to a profile
func (r *VehicleRepository) ListVehiclesByOwner(ownerID uuid.UUID) ([]*models.Vehicle, error) {
	var vehicles []*models.Vehicle

	query := `
		SELECT id, owner_id, chassis_number, make, model, status,
		       documents_uploaded, submitted_at, decided_at,
		       created_at, updated_at
		FROM vehicles
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	err := r.db.Select(&vehicles, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles by owner: %w", err)
	}

	return vehicles, nil
}

// ListVehiclesByStatus retrieves vehicles in a given lifecycle state
func (r *VehicleRepository) ListVehiclesByStatus(status models.VehicleStatus, limit, offset int) ([]*models.Vehicle, error) {
	var vehicles []*models.Vehicle

	query := `
		SELECT id, owner_id, chassis_number, make, model, status,
		       documents_uploaded, submitted_at, decided_at,
		       created_at, updated_at
		FROM vehicles
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.Select(&vehicles, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles by status: %w", err)
	}

	return vehicles, nil
}

// UpdateVehicleStatusTx flips the vehicle's lifecycle state inside a transaction
func (r *VehicleRepository) UpdateVehicleStatusTx(tx *sqlx.Tx, id uuid.UUID, status models.VehicleStatus) error {
	now := time.Now()

	query := `
		UPDATE vehicles
		SET status = $1,
		    submitted_at = CASE WHEN $1 = 'pending' THEN $2 ELSE submitted_at END,
		    decided_at = CASE WHEN $1 IN ('approved', 'rejected') THEN $2 ELSE decided_at END,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(query, status, now, id)
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("vehicle not found")
	}

	return nil
}

// RecomputeDocumentsUploaded refreshes the denormalized document counter
func (r *VehicleRepository) RecomputeDocumentsUploaded(id uuid.UUID) error {
	query := `
		UPDATE vehicles
		SET documents_uploaded = (
		        SELECT COUNT(*) FROM documents WHERE vehicle_id = $1
		    ),
		    updated_at = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to recompute documents counter: %w", err)
	}

	return nil
}

// CountVehiclesByStatus returns vehicle counts grouped by lifecycle state
func (r *VehicleRepository) CountVehiclesByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM vehicles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vehicle counts: %w", err)
	}

	return counts, nil
}
