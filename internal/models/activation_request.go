package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivationStatus represents the state of an account activation request
type ActivationStatus string

const (
	ActivationStatusPending  ActivationStatus = "pending"
	ActivationStatusApproved ActivationStatus = "approved"
	ActivationStatusRejected ActivationStatus = "rejected"
)

// ActivationRequest represents a customer's request to activate their account.
// A rejected request may be followed by a new pending one; reads always take
// the most recent row per user.
type ActivationRequest struct {
	ID                 uuid.UUID        `json:"id" db:"id"`
	UserID             uuid.UUID        `json:"user_id" db:"user_id"`
	CompanyName        string           `json:"company_name" db:"company_name"`
	AuthorizationLetter string          `json:"authorization_letter" db:"authorization_letter"`
	IDDocument         string           `json:"id_document" db:"id_document"`
	Status             ActivationStatus `json:"status" db:"status"`
	ReviewedBy         uuid.NullUUID    `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNotes        NullString       `json:"review_notes,omitempty" db:"review_notes"`
	ReviewedAt         NullTime         `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}
