package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/models"
)

func newNotificationService(t *testing.T, sender *fakeSender) (*NotificationService, database.DB, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	svc := NewNotificationService(database.NewNotificationRepository(db), sender, testOutboxConfig())
	return svc, db, mock
}

func TestQueueTx(t *testing.T) {
	svc, db, mock := newNotificationService(t, &fakeSender{})
	recipientID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), models.NotificationVehicleApproved, "Vehicle approved",
			sqlmock.AnyArg(), recipientID, "owner@example.com",
			sqlmock.AnyArg(), models.DispatchPending, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	err = svc.QueueTx(tx, models.NotificationVehicleApproved, "Vehicle approved",
		"All documents verified.", recipientID, "owner@example.com", uuid.NullUUID{})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchPending(t *testing.T) {
	now := time.Now()

	t.Run("Delivers batch and marks rows", func(t *testing.T) {
		sender := &fakeSender{}
		svc, _, mock := newNotificationService(t, sender)

		okID := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE dispatch_status = 'pending'`).
			WithArgs(25).
			WillReturnRows(sqlmock.NewRows(notificationColumns).
				AddRow(okID, "vehicle_approved", "Vehicle approved", "All documents verified.",
					uuid.New(), "owner@example.com", nil, "pending", 0, nil, now))
		mock.ExpectExec(`UPDATE notifications`).
			WithArgs(sqlmock.AnyArg(), okID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		sent, failed, err := svc.DispatchPending()
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, 0, failed)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "owner@example.com", sender.sent[0].To)
		assert.Equal(t, "Vehicle approved", sender.sent[0].Subject)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed delivery records attempt", func(t *testing.T) {
		sender := &fakeSender{failFor: map[string]bool{"bounce@example.com": true}}
		svc, _, mock := newNotificationService(t, sender)

		okID := uuid.New()
		badID := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE dispatch_status = 'pending'`).
			WithArgs(25).
			WillReturnRows(sqlmock.NewRows(notificationColumns).
				AddRow(okID, "invoice_issued", "Invoice issued", "Ready for download.",
					uuid.New(), "owner@example.com", nil, "pending", 0, nil, now).
				AddRow(badID, "document_rejected", "Document rejected", "Remarks: blurry scan.",
					uuid.New(), "bounce@example.com", nil, "pending", 4, nil, now))
		mock.ExpectExec(`UPDATE notifications`).
			WithArgs(sqlmock.AnyArg(), okID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE notifications`).
			WithArgs(5, badID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		sent, failed, err := svc.DispatchPending()
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, 1, failed)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "owner@example.com", sender.sent[0].To)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListForRecipient(t *testing.T) {
	svc, _, mock := newNotificationService(t, &fakeSender{})
	recipientID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE recipient_id`).
		WithArgs(recipientID, 50).
		WillReturnRows(sqlmock.NewRows(notificationColumns).
			AddRow(uuid.New(), "activation_approved", "Account activated", "Welcome aboard.",
				recipientID, "owner@example.com", nil, "sent", 1, now, now))

	notifications, err := svc.ListForRecipient(recipientID, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationActivationApproved, notifications[0].Type)

	assert.NoError(t, mock.ExpectationsWereMet())
}
