package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/portal-backend/internal/models"
)

func TestCreateVehicle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVehicleRepository(db)
	ownerID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO vehicles`).
			WithArgs(sqlmock.AnyArg(), ownerID, "JTDKB20U277654321", sqlmock.AnyArg(), sqlmock.AnyArg(),
				models.VehicleStatusDraft, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		vehicle, err := repo.CreateVehicle(ownerID, " jtdkb20u277654321 ", "Toyota", "Aqua")
		require.NoError(t, err)
		assert.Equal(t, "JTDKB20U277654321", vehicle.ChassisNumber)
		assert.Equal(t, models.VehicleStatusDraft, vehicle.Status)
		assert.Equal(t, ownerID, vehicle.OwnerID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate chassis", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO vehicles`).
			WillReturnError(&pq.Error{Code: "23505"})

		vehicle, err := repo.CreateVehicle(ownerID, "JTDKB20U277654321", "", "")
		assert.Error(t, err)
		assert.Nil(t, vehicle)
		assert.True(t, IsUniqueViolation(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetVehicleByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVehicleRepository(db)
	vehicleID := uuid.New()
	ownerID := uuid.New()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows(vehicleColumns).AddRow(
				vehicleID, ownerID, "JTDKB20U277654321", "Toyota", "Aqua", "pending",
				3, now, nil, now, now,
			))

		vehicle, err := repo.GetVehicleByID(vehicleID)
		require.NoError(t, err)
		require.NotNil(t, vehicle)
		assert.Equal(t, models.VehicleStatusPending, vehicle.Status)
		assert.Equal(t, 3, vehicle.DocumentsUploaded)
		assert.True(t, vehicle.SubmittedAt.Valid)
		assert.False(t, vehicle.DecidedAt.Valid)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found returns nil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows(vehicleColumns))

		vehicle, err := repo.GetVehicleByID(vehicleID)
		require.NoError(t, err)
		assert.Nil(t, vehicle)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateVehicleStatusTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVehicleRepository(db)
	vehicleID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vehicles`).
			WithArgs(models.VehicleStatusPending, sqlmock.AnyArg(), vehicleID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.UpdateVehicleStatusTx(tx, vehicleID, models.VehicleStatusPending)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Vehicle not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vehicles`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.UpdateVehicleStatusTx(tx, vehicleID, models.VehicleStatusApproved)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "vehicle not found")
		require.NoError(t, tx.Rollback())

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetVehicleForUpdateTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVehicleRepository(db)
	vehicleID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id (.+) FOR UPDATE`).
		WithArgs(vehicleID).
		WillReturnRows(sqlmock.NewRows(vehicleColumns).AddRow(
			vehicleID, uuid.New(), "JTDKB20U277654321", nil, nil, "pending",
			3, now, nil, now, now,
		))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	vehicle, err := repo.GetVehicleForUpdateTx(tx, vehicleID)
	require.NoError(t, err)
	require.NotNil(t, vehicle)
	assert.Equal(t, models.VehicleStatusPending, vehicle.Status)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeDocumentsUploaded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVehicleRepository(db)
	vehicleID := uuid.New()

	mock.ExpectExec(`UPDATE vehicles`).
		WithArgs(vehicleID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecomputeDocumentsUploaded(vehicleID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountVehiclesByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVehicleRepository(db)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM vehicles GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("draft", 4).
			AddRow("pending", 2).
			AddRow("approved", 7))

	counts, err := repo.CountVehiclesByStatus()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"draft": 4, "pending": 2, "approved": 7}, counts)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListVehiclesByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVehicleRepository(db)
	ownerID := uuid.New()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE owner_id`).
			WithArgs(ownerID).
			WillReturnRows(sqlmock.NewRows(vehicleColumns).
				AddRow(uuid.New(), ownerID, "CHASSIS1", nil, nil, "draft", 1, nil, nil, now, now).
				AddRow(uuid.New(), ownerID, "CHASSIS2", "Nissan", "Leaf", "approved", 3, now, now, now, now))

		vehicles, err := repo.ListVehiclesByOwner(ownerID)
		require.NoError(t, err)
		require.Len(t, vehicles, 2)
		assert.Equal(t, "CHASSIS1", vehicles[0].ChassisNumber)
		assert.Equal(t, models.VehicleStatusApproved, vehicles[1].Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE owner_id`).
			WithArgs(ownerID).
			WillReturnError(fmt.Errorf("connection refused"))

		vehicles, err := repo.ListVehiclesByOwner(ownerID)
		assert.Error(t, err)
		assert.Nil(t, vehicles)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
