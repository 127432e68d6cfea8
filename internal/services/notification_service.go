package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/portal-backend/internal/config"
	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/pkg/mail"
)

// NotificationService implements the notification outbox. Workflow services
// queue rows inside their own transactions; a background dispatcher delivers
// them by email. Delivery is best effort and never blocks a workflow.
type NotificationService struct {
	notifRepo *database.NotificationRepository
	gateway   mail.Sender
	cfg       config.OutboxConfig
	cron      *cron.Cron
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifRepo *database.NotificationRepository, gateway mail.Sender, cfg config.OutboxConfig) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		gateway:   gateway,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// QueueTx inserts a notification row within the caller's transaction, so the
// notification commits or rolls back together with the workflow change.
func (s *NotificationService) QueueTx(tx *sqlx.Tx, notifType models.NotificationType, title, message string, recipientID uuid.UUID, recipientEmail string, documentID uuid.NullUUID) error {
	n := &models.Notification{
		Type:           notifType,
		Title:          title,
		Message:        message,
		RecipientID:    recipientID,
		RecipientEmail: recipientEmail,
		DocumentID:     documentID,
	}
	if err := s.notifRepo.InsertTx(tx, n); err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}
	return nil
}

// ListForRecipient returns the recipient's most recent notifications
func (s *NotificationService) ListForRecipient(recipientID uuid.UUID, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifRepo.ListByRecipient(recipientID, limit)
}

// Start schedules the outbox dispatcher
func (s *NotificationService) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, s.dispatchJob)
	if err != nil {
		return fmt.Errorf("failed to schedule outbox dispatcher: %w", err)
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"schedule":   s.cfg.Schedule,
		"batch_size": s.cfg.BatchSize,
		"gateway":    s.gateway.GetName(),
	}).Info("Notification outbox dispatcher started")

	return nil
}

// Stop stops the dispatcher and waits for a running batch to finish
func (s *NotificationService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logrus.Info("Notification outbox dispatcher stopped")
}

func (s *NotificationService) dispatchJob() {
	sent, failed, err := s.DispatchPending()
	if err != nil {
		logrus.WithError(err).Error("Outbox dispatch batch failed")
		return
	}
	if sent > 0 || failed > 0 {
		logrus.WithFields(logrus.Fields{
			"sent":   sent,
			"failed": failed,
		}).Info("Outbox dispatch batch completed")
	}
}

// DispatchPending delivers one batch of undispatched notifications. Each
// notification is retried on later batches until it succeeds or exhausts
// the attempt budget.
func (s *NotificationService) DispatchPending() (sent int, failed int, err error) {
	pending, err := s.notifRepo.ListUndispatched(s.cfg.BatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list undispatched notifications: %w", err)
	}

	for _, n := range pending {
		sendErr := s.gateway.Send(mail.Message{
			To:      n.RecipientEmail,
			Subject: n.Title,
			Body:    n.Message,
		})
		if sendErr != nil {
			failed++
			logrus.WithFields(logrus.Fields{
				"notification_id": n.ID,
				"type":            n.Type,
				"attempts":        n.Attempts + 1,
				"error":           sendErr.Error(),
			}).Warn("Notification delivery failed")

			if recErr := s.notifRepo.RecordFailure(n.ID, s.cfg.MaxAttempts); recErr != nil {
				logrus.WithError(recErr).Error("Failed to record notification failure")
			}
			continue
		}

		if markErr := s.notifRepo.MarkDispatched(n.ID); markErr != nil {
			logrus.WithError(markErr).Error("Failed to mark notification dispatched")
			continue
		}
		sent++
	}

	return sent, failed, nil
}
