package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType categorises outbox notifications
type NotificationType string

const (
	NotificationDocumentVerified   NotificationType = "document_verified"
	NotificationDocumentRejected   NotificationType = "document_rejected"
	NotificationVehicleApproved    NotificationType = "vehicle_approved"
	NotificationVehicleRejected    NotificationType = "vehicle_rejected"
	NotificationActivationApproved NotificationType = "activation_approved"
	NotificationActivationRejected NotificationType = "activation_rejected"
	NotificationInvoiceIssued      NotificationType = "invoice_issued"
)

// DispatchStatus represents the outbox delivery state of a notification
type DispatchStatus string

const (
	DispatchPending DispatchStatus = "pending"
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
)

// Notification is an outbox row written in the same transaction as the
// state change it announces. Delivery is handled asynchronously.
type Notification struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	Type           NotificationType `json:"type" db:"notif_type"`
	Title          string           `json:"title" db:"title"`
	Message        string           `json:"message" db:"message"`
	RecipientID    uuid.UUID        `json:"recipient_id" db:"recipient_id"`
	RecipientEmail string           `json:"recipient_email" db:"recipient_email"`
	DocumentID     uuid.NullUUID    `json:"document_id,omitempty" db:"document_id"`
	DispatchStatus DispatchStatus   `json:"dispatch_status" db:"dispatch_status"`
	Attempts       int              `json:"attempts" db:"attempts"`
	DispatchedAt   NullTime         `json:"dispatched_at,omitempty" db:"dispatched_at"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}
