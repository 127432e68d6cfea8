package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VehicleStatus represents the lifecycle state of a vehicle
type VehicleStatus string

const (
	VehicleStatusDraft    VehicleStatus = "draft"
	VehicleStatusPending  VehicleStatus = "pending"
	VehicleStatusApproved VehicleStatus = "approved"
	VehicleStatusRejected VehicleStatus = "rejected"
)

// ValidVehicleStatus reports whether the given status is recognised
func ValidVehicleStatus(s VehicleStatus) bool {
	switch s {
	case VehicleStatusDraft, VehicleStatusPending, VehicleStatusApproved, VehicleStatusRejected:
		return true
	}
	return false
}

// Vehicle represents a customer-owned vehicle under verification
type Vehicle struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	OwnerID           uuid.UUID     `json:"owner_id" db:"owner_id"`
	ChassisNumber     string        `json:"chassis_number" db:"chassis_number"`
	Make              NullString    `json:"make,omitempty" db:"make"`
	Model             NullString    `json:"model,omitempty" db:"model"`
	Status            VehicleStatus `json:"status" db:"status"`
	DocumentsUploaded int           `json:"documents_uploaded" db:"documents_uploaded"`
	SubmittedAt       NullTime      `json:"submitted_at,omitempty" db:"submitted_at"`
	DecidedAt         NullTime      `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// Editable reports whether the owner may modify the vehicle's documents.
// Pending and approved vehicles are review-locked.
func (v *Vehicle) Editable() bool {
	return v.Status == VehicleStatusDraft || v.Status == VehicleStatusRejected
}

// NormalizeChassisNumber uppercases and trims a chassis number for lookup
func NormalizeChassisNumber(chassis string) string {
	return strings.ToUpper(strings.TrimSpace(chassis))
}
