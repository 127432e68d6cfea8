package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/portal-backend/internal/config"
	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/pkg/mail"
)

var vehicleColumns = []string{
	"id", "owner_id", "chassis_number", "make", "model", "status",
	"documents_uploaded", "submitted_at", "decided_at", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (database.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

// injectUser stands in for AuthMiddleware in tests
func injectUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{
			UserID:        userID,
			Email:         "customer@example.com",
			Role:          role,
			AccountStatus: string(models.AccountActive),
		})
		c.Next()
	}
}

func setupVehicleRouter(t *testing.T, ownerID uuid.UUID) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock := newMockDB(t)
	vehicleRepo := database.NewVehicleRepository(db)
	documentRepo := database.NewDocumentRepository(db)
	profileRepo := database.NewProfileRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	notificationSvc := services.NewNotificationService(notificationRepo, mail.NewDevGateway(), config.OutboxConfig{
		Schedule:    "*/30 * * * * *",
		BatchSize:   25,
		MaxAttempts: 5,
	})
	approvalSvc := services.NewApprovalService(db, vehicleRepo, documentRepo, profileRepo, notificationSvc)

	handler := NewVehicleHandler(approvalSvc)

	router := gin.New()
	router.Use(injectUser(ownerID, string(models.RoleCustomer)))
	router.POST("/vehicles", handler.RegisterVehicle)
	router.GET("/vehicles", handler.ListVehicles)
	router.GET("/vehicles/:id", handler.GetVehicle)

	return router, mock
}

func TestVehicleHandler_RegisterVehicle(t *testing.T) {
	ownerID := uuid.New()

	t.Run("creates vehicle and returns 201", func(t *testing.T) {
		router, mock := setupVehicleRouter(t, ownerID)

		mock.ExpectExec(`INSERT INTO vehicles`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		body, _ := json.Marshal(RegisterVehicleRequest{
			ChassisNumber: "jtdbr32e720123456",
			Make:          "Toyota",
			Model:         "Corolla",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/vehicles", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var vehicle models.Vehicle
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vehicle))
		assert.Equal(t, "JTDBR32E720123456", vehicle.ChassisNumber)
		assert.Equal(t, models.VehicleStatusDraft, vehicle.Status)
		assert.Equal(t, ownerID, vehicle.OwnerID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects missing chassis number", func(t *testing.T) {
		router, mock := setupVehicleRouter(t, ownerID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/vehicles", bytes.NewReader([]byte(`{"make":"Toyota"}`)))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_REQUEST", resp.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns 409 for duplicate chassis number", func(t *testing.T) {
		router, mock := setupVehicleRouter(t, ownerID)

		mock.ExpectExec(`INSERT INTO vehicles`).
			WillReturnError(&pq.Error{Code: "23505"})

		body, _ := json.Marshal(RegisterVehicleRequest{ChassisNumber: "JTDBR32E720123456"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/vehicles", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "CONFLICT", resp.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVehicleHandler_GetVehicle(t *testing.T) {
	ownerID := uuid.New()
	vehicleID := uuid.New()
	now := time.Now()

	t.Run("returns own vehicle", func(t *testing.T) {
		router, mock := setupVehicleRouter(t, ownerID)

		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id = \$1`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows(vehicleColumns).
				AddRow(vehicleID, ownerID, "JTDBR32E720123456", "Toyota", "Corolla",
					"draft", 0, nil, nil, now, now))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/vehicles/"+vehicleID.String(), nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var vehicle models.Vehicle
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vehicle))
		assert.Equal(t, vehicleID, vehicle.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns 404 for unknown vehicle", func(t *testing.T) {
		router, mock := setupVehicleRouter(t, ownerID)

		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id = \$1`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows(vehicleColumns))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/vehicles/"+vehicleID.String(), nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns 403 for another customer's vehicle", func(t *testing.T) {
		router, mock := setupVehicleRouter(t, ownerID)

		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id = \$1`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows(vehicleColumns).
				AddRow(vehicleID, uuid.New(), "WVWZZZ1JZ3W386752", "VW", "Golf",
					"draft", 0, nil, nil, now, now))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/vehicles/"+vehicleID.String(), nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusForbidden, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns 400 for malformed id", func(t *testing.T) {
		router, mock := setupVehicleRouter(t, ownerID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/vehicles/not-a-uuid", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
