package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/portal-backend/internal/models"
)

func TestCreateInvoiceRequest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	vehicleID := uuid.New()
	ownerID := uuid.New()

	mock.ExpectExec(`INSERT INTO invoices`).
		WithArgs(sqlmock.AnyArg(), vehicleID, ownerID, models.InvoiceStatusRequested,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	invoice, err := repo.CreateRequest(vehicleID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusRequested, invoice.Status)
	assert.False(t, invoice.Downloadable())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInvoiceByVehicle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	vehicleID := uuid.New()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM invoices WHERE vehicle_id`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(
				uuid.New(), vehicleID, uuid.New(), "issued", now, now,
				"invoices/inv-001.pdf", uuid.New(), now, now,
			))

		invoice, err := repo.GetInvoiceByVehicle(vehicleID)
		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, models.InvoiceStatusIssued, invoice.Status)
		assert.True(t, invoice.Downloadable())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found returns nil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM invoices WHERE vehicle_id`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows(invoiceColumns))

		invoice, err := repo.GetInvoiceByVehicle(vehicleID)
		require.NoError(t, err)
		assert.Nil(t, invoice)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkIssuedTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	invoiceID := uuid.New()
	issuerID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE invoices`).
			WithArgs(sqlmock.AnyArg(), "invoices/inv-001.pdf", issuerID, invoiceID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.MarkIssuedTx(tx, invoiceID, issuerID, "invoices/inv-001.pdf")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invoice not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE invoices`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.MarkIssuedTx(tx, invoiceID, issuerID, "invoices/inv-001.pdf")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invoice not found")
		require.NoError(t, tx.Rollback())

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountInvoicesByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM invoices GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("requested", 3).
			AddRow("issued", 9))

	counts, err := repo.CountInvoicesByStatus()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"requested": 3, "issued": 9}, counts)

	assert.NoError(t, mock.ExpectationsWereMet())
}
