package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cargolink/portal-backend/internal/models"
)

// NotificationRepository handles the notification outbox table
type NotificationRepository struct {
	db DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

// InsertTx writes an outbox row inside the transaction of the state change
// that produced it. Dispatch happens asynchronously.
func (r *NotificationRepository) InsertTx(tx *sqlx.Tx, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.DispatchStatus = models.DispatchPending
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (
			id, notif_type, title, message, recipient_id, recipient_email,
			document_id, dispatch_status, attempts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(
		query,
		n.ID,
		n.Type,
		n.Title,
		n.Message,
		n.RecipientID,
		n.RecipientEmail,
		n.DocumentID,
		n.DispatchStatus,
		n.Attempts,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// ListUndispatched fetches pending outbox rows for the dispatcher
func (r *NotificationRepository) ListUndispatched(limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification

	query := `
		SELECT id, notif_type, title, message, recipient_id, recipient_email,
		       document_id, dispatch_status, attempts, dispatched_at, created_at
		FROM notifications
		WHERE dispatch_status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`

	err := r.db.Select(&notifications, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list undispatched notifications: %w", err)
	}

	return notifications, nil
}

// MarkDispatched flags a notification as delivered
func (r *NotificationRepository) MarkDispatched(id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET dispatch_status = 'sent',
		    attempts = attempts + 1,
		    dispatched_at = $1
		WHERE id = $2
	`

	_, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification dispatched: %w", err)
	}

	return nil
}

// RecordFailure bumps the attempt counter; rows that exhaust maxAttempts are
// marked failed and never retried again.
func (r *NotificationRepository) RecordFailure(id uuid.UUID, maxAttempts int) error {
	query := `
		UPDATE notifications
		SET attempts = attempts + 1,
		    dispatch_status = CASE WHEN attempts + 1 >= $1 THEN 'failed' ELSE 'pending' END
		WHERE id = $2
	`

	_, err := r.db.Exec(query, maxAttempts, id)
	if err != nil {
		return fmt.Errorf("failed to record notification failure: %w", err)
	}

	return nil
}

// ListByRecipient retrieves recent notifications for a profile
func (r *NotificationRepository) ListByRecipient(recipientID uuid.UUID, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification

	query := `
		SELECT id, notif_type, title, message, recipient_id, recipient_email,
		       document_id, dispatch_status, attempts, dispatched_at, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	err := r.db.Select(&notifications, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications by recipient: %w", err)
	}

	return notifications, nil
}
