package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusRequested  InvoiceStatus = "requested"
	InvoiceStatusProcessing InvoiceStatus = "processing"
	InvoiceStatusIssued     InvoiceStatus = "issued"
	InvoiceStatusRejected   InvoiceStatus = "rejected"
)

// ValidInvoiceStatus reports whether the given status is recognised
func ValidInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceStatusRequested, InvoiceStatusProcessing, InvoiceStatusIssued, InvoiceStatusRejected:
		return true
	}
	return false
}

// Invoice represents an invoice request or issuance for an approved vehicle.
// At most one invoice exists per vehicle (unique constraint on vehicle_id).
type Invoice struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	VehicleID   uuid.UUID     `json:"vehicle_id" db:"vehicle_id"`
	OwnerID     uuid.UUID     `json:"owner_id" db:"owner_id"`
	Status      InvoiceStatus `json:"status" db:"status"`
	RequestDate time.Time     `json:"request_date" db:"request_date"`
	IssueDate   NullTime      `json:"issue_date,omitempty" db:"issue_date"`
	FilePath    NullString    `json:"file_path,omitempty" db:"file_path"`
	IssuedBy    uuid.NullUUID `json:"issued_by,omitempty" db:"issued_by"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Downloadable reports whether the invoice file may be served to the owner
func (i *Invoice) Downloadable() bool {
	return i.Status == InvoiceStatusIssued && i.FilePath.Valid && i.FilePath.String != ""
}
