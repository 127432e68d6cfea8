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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cargolink/portal-backend/internal/config"
	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/pkg/jwt"
)

var profileColumns = []string{
	"id", "full_name", "email", "phone", "company", "role",
	"account_status", "password_hash", "last_login_at", "created_at", "updated_at",
}

func setupAuthRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock := newMockDB(t)
	profileRepo := database.NewProfileRepository(db)
	jwtService := jwt.NewService("test-access-secret", "test-refresh-secret", time.Hour, 7*24*time.Hour)
	auditSvc := services.NewAuditService(db, false)

	cfg := &config.Config{
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}
	handler := NewAuthHandler(profileRepo, jwtService, auditSvc, cfg)

	router := gin.New()
	router.POST("/auth/register", handler.Register)
	router.POST("/auth/login", handler.Login)
	router.POST("/auth/refresh", handler.RefreshToken)

	return router, mock
}

func profileRow(id uuid.UUID, email, passwordHash string, role models.Role, status models.AccountStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(profileColumns).
		AddRow(id, "Nadeesha Perera", email, "0771234567", "Perera Imports",
			role, status, passwordHash, nil, now, now)
}

func TestAuthHandler_Login(t *testing.T) {
	userID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("returns tokens for valid credentials", func(t *testing.T) {
		router, mock := setupAuthRouter(t)

		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
			WithArgs("nadeesha@example.com").
			WillReturnRows(profileRow(userID, "nadeesha@example.com", string(hash), models.RoleCustomer, models.AccountActive))
		mock.ExpectExec(`UPDATE profiles`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		body, _ := json.Marshal(LoginRequest{Email: "Nadeesha@Example.com", Password: "s3cret-pass"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		require.NotNil(t, resp.Profile)
		assert.Equal(t, userID, resp.Profile.ID)
		assert.Empty(t, resp.Profile.PasswordHash)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		router, mock := setupAuthRouter(t)

		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
			WithArgs("nadeesha@example.com").
			WillReturnRows(profileRow(userID, "nadeesha@example.com", string(hash), models.RoleCustomer, models.AccountActive))

		body, _ := json.Marshal(LoginRequest{Email: "nadeesha@example.com", Password: "wrong"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_CREDENTIALS", resp.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown email with the same error", func(t *testing.T) {
		router, mock := setupAuthRouter(t)

		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows(profileColumns))

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "whatever"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_CREDENTIALS", resp.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocks suspended accounts", func(t *testing.T) {
		router, mock := setupAuthRouter(t)

		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
			WithArgs("nadeesha@example.com").
			WillReturnRows(profileRow(userID, "nadeesha@example.com", string(hash), models.RoleCustomer, models.AccountSuspended))

		body, _ := json.Marshal(LoginRequest{Email: "nadeesha@example.com", Password: "s3cret-pass"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusForbidden, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ACCOUNT_DISABLED", resp.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("creates account in pending activation state", func(t *testing.T) {
		router, mock := setupAuthRouter(t)

		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
			WithArgs("kasun@example.com").
			WillReturnRows(sqlmock.NewRows(profileColumns))
		mock.ExpectExec(`INSERT INTO profiles`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		body, _ := json.Marshal(RegisterRequest{
			FullName: "Kasun Silva",
			Email:    "kasun@example.com",
			Password: "longenoughpass",
			Company:  "Silva Trading",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Profile)
		assert.Equal(t, models.AccountPendingActivation, resp.Profile.AccountStatus)
		assert.Equal(t, models.RoleCustomer, resp.Profile.Role)
		assert.NotEmpty(t, resp.AccessToken)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		router, mock := setupAuthRouter(t)

		userID := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
			WithArgs("kasun@example.com").
			WillReturnRows(profileRow(userID, "kasun@example.com", "hash", models.RoleCustomer, models.AccountActive))

		body, _ := json.Marshal(RegisterRequest{
			FullName: "Kasun Silva",
			Email:    "kasun@example.com",
			Password: "longenoughpass",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "EMAIL_TAKEN", resp.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects short password", func(t *testing.T) {
		router, mock := setupAuthRouter(t)

		body, _ := json.Marshal(RegisterRequest{
			FullName: "Kasun Silva",
			Email:    "kasun@example.com",
			Password: "short",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
