package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/portal-backend/internal/models"
)

func TestCreateActivationRequest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivationRepository(db)
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO account_activation_requests`).
			WithArgs(sqlmock.AnyArg(), userID, "Ceylon Freight (Pvt) Ltd",
				"verification-docs/auth.pdf", "verification-docs/nic.pdf",
				models.ActivationStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req, err := repo.CreateRequest(userID, "Ceylon Freight (Pvt) Ltd",
			"verification-docs/auth.pdf", "verification-docs/nic.pdf")
		require.NoError(t, err)
		assert.Equal(t, models.ActivationStatusPending, req.Status)
		assert.Equal(t, userID, req.UserID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate pending request", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO account_activation_requests`).
			WillReturnError(&pq.Error{Code: "23505"})

		req, err := repo.CreateRequest(userID, "Ceylon Freight (Pvt) Ltd", "a.pdf", "b.pdf")
		assert.Error(t, err)
		assert.Nil(t, req)
		assert.True(t, IsUniqueViolation(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetLatestRequestByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivationRepository(db)
	userID := uuid.New()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM account_activation_requests WHERE user_id`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(activationColumns).AddRow(
				uuid.New(), userID, "Ceylon Freight (Pvt) Ltd", "a.pdf", "b.pdf",
				"rejected", uuid.New(), "authorization letter is unsigned", now, now, now,
			))

		req, err := repo.GetLatestRequestByUser(userID)
		require.NoError(t, err)
		require.NotNil(t, req)
		assert.Equal(t, models.ActivationStatusRejected, req.Status)
		assert.Equal(t, "authorization letter is unsigned", req.ReviewNotes.String)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No requests yet", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM account_activation_requests WHERE user_id`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(activationColumns))

		req, err := repo.GetLatestRequestByUser(userID)
		require.NoError(t, err)
		assert.Nil(t, req)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReviewRequestTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivationRepository(db)
	requestID := uuid.New()
	reviewerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE account_activation_requests`).
		WithArgs(models.ActivationStatusApproved, "", reviewerID, sqlmock.AnyArg(), requestID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	err = repo.ReviewRequestTx(tx, requestID, models.ActivationStatusApproved, "", reviewerID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingRequests(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivationRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM account_activation_requests WHERE status = 'pending'`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(activationColumns).
			AddRow(uuid.New(), uuid.New(), "Ceylon Freight (Pvt) Ltd", "a.pdf", "b.pdf",
				"pending", nil, nil, nil, now, now))

	requests, err := repo.ListPendingRequests(20, 0)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.ActivationStatusPending, requests[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}
