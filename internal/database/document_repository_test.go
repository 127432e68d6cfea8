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

func TestCreateDocument(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	ownerID := uuid.New()
	vehicleID := uuid.New()

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(sqlmock.AnyArg(), ownerID, vehicleID, models.DocumentTypeBillOfLading,
			"bol.pdf", "documents/bol.pdf", models.DocumentStatusPending,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := repo.CreateDocument(ownerID, vehicleID, models.DocumentTypeBillOfLading, "bol.pdf", "documents/bol.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
	assert.Equal(t, models.DocumentTypeBillOfLading, doc.Type)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentByVehicleAndType(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	vehicleID := uuid.New()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM documents WHERE vehicle_id`).
			WithArgs(vehicleID, models.DocumentTypeReleaseOrder).
			WillReturnRows(sqlmock.NewRows(documentColumns).AddRow(
				uuid.New(), uuid.New(), vehicleID, "releaseOrder", "ro.pdf", "documents/ro.pdf",
				"pending", nil, nil, nil, now, now,
			))

		doc, err := repo.GetDocumentByVehicleAndType(vehicleID, models.DocumentTypeReleaseOrder)
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, models.DocumentTypeReleaseOrder, doc.Type)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found returns nil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM documents WHERE vehicle_id`).
			WithArgs(vehicleID, models.DocumentTypeReleaseOrder).
			WillReturnRows(sqlmock.NewRows(documentColumns))

		doc, err := repo.GetDocumentByVehicleAndType(vehicleID, models.DocumentTypeReleaseOrder)
		require.NoError(t, err)
		assert.Nil(t, doc)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReplaceDocumentFile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	docID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE documents`).
			WithArgs("bol-v2.pdf", "documents/bol-v2.pdf", sqlmock.AnyArg(), docID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ReplaceDocumentFile(docID, "bol-v2.pdf", "documents/bol-v2.pdf")
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Document not found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE documents`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ReplaceDocumentFile(docID, "bol-v2.pdf", "documents/bol-v2.pdf")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "document not found")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReviewDocumentTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	docID := uuid.New()
	reviewerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE documents`).
		WithArgs(models.DocumentStatusRejected, "blurry scan", reviewerID, sqlmock.AnyArg(), docID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	err = repo.ReviewDocumentTx(tx, docID, models.DocumentStatusRejected, "blurry scan", reviewerID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDocumentsPendingTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	vehicleID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE documents`).
		WithArgs(sqlmock.AnyArg(), vehicleID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	err = repo.MarkDocumentsPendingTx(tx, vehicleID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDocument(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	docID := uuid.New()

	mock.ExpectExec(`DELETE FROM documents WHERE id`).
		WithArgs(docID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteDocument(docID)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocumentsByVehicle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	vehicleID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM documents WHERE vehicle_id`).
		WithArgs(vehicleID).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow(uuid.New(), uuid.New(), vehicleID, "billOfLading", "bol.pdf", "documents/bol.pdf",
				"approved", nil, uuid.New(), now, now, now).
			AddRow(uuid.New(), uuid.New(), vehicleID, "releaseOrder", "ro.pdf", "documents/ro.pdf",
				"rejected", "expired release order", uuid.New(), now, now, now))

	docs, err := repo.ListDocumentsByVehicle(vehicleID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, models.DocumentStatusApproved, docs[0].Status)
	assert.Equal(t, "expired release order", docs[1].Remarks.String)

	assert.NoError(t, mock.ExpectationsWereMet())
}
