package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType identifies one of the required vehicle documents
type DocumentType string

const (
	DocumentTypeBillOfLading        DocumentType = "billOfLading"
	DocumentTypeReleaseOrder        DocumentType = "releaseOrder"
	DocumentTypeVehicleRegistration DocumentType = "vehicleRegistration"

	// Legacy alias some clients send for the release order
	documentTypeCommercialInvoice DocumentType = "commercialInvoice"
)

// RequiredDocumentTypes lists the document types a vehicle must carry
// before it can be submitted for review.
var RequiredDocumentTypes = []DocumentType{
	DocumentTypeBillOfLading,
	DocumentTypeReleaseOrder,
	DocumentTypeVehicleRegistration,
}

// NormalizeDocumentType maps incoming type strings to the canonical enum.
// commercialInvoice is accepted as an alias of releaseOrder.
func NormalizeDocumentType(t string) (DocumentType, bool) {
	switch DocumentType(t) {
	case DocumentTypeBillOfLading:
		return DocumentTypeBillOfLading, true
	case DocumentTypeReleaseOrder, documentTypeCommercialInvoice:
		return DocumentTypeReleaseOrder, true
	case DocumentTypeVehicleRegistration:
		return DocumentTypeVehicleRegistration, true
	}
	return "", false
}

// DocumentStatus represents the review state of an uploaded document
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// Document represents an uploaded file attached to a vehicle
type Document struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	OwnerID    uuid.UUID      `json:"owner_id" db:"owner_id"`
	VehicleID  uuid.UUID      `json:"vehicle_id" db:"vehicle_id"`
	Type       DocumentType   `json:"type" db:"doc_type"`
	FileName   string         `json:"file_name" db:"file_name"`
	FilePath   string         `json:"file_path" db:"file_path"`
	Status     DocumentStatus `json:"status" db:"status"`
	Remarks    NullString     `json:"remarks,omitempty" db:"remarks"`
	ReviewedBy uuid.NullUUID  `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt NullTime       `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}
