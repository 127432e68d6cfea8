package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cargolink/portal-backend/internal/config"
	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/internal/utils"
	"github.com/cargolink/portal-backend/pkg/jwt"
)

type AuthHandler struct {
	profileRepo *database.ProfileRepository
	jwtService  *jwt.Service
	auditSvc    *services.AuditService
	bcryptCost  int
}

func NewAuthHandler(profileRepo *database.ProfileRepository, jwtService *jwt.Service, auditSvc *services.AuditService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		profileRepo: profileRepo,
		jwtService:  jwtService,
		auditSvc:    auditSvc,
		bcryptCost:  cfg.Security.BcryptCost,
	}
}

type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Profile      *models.Profile `json:"profile"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

// Register creates a new customer account in pending_activation state.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.profileRepo.GetProfileByEmail(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to check existing account", Code: "INTERNAL_ERROR"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "An account with this email already exists",
			Code:  "EMAIL_TAKEN",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process password", Code: "INTERNAL_ERROR"})
		return
	}

	profile, err := h.profileRepo.CreateProfile(strings.TrimSpace(req.FullName), email, strings.TrimSpace(req.Phone), strings.TrimSpace(req.Company), string(hash))
	if err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: "An account with this email already exists",
				Code:  "EMAIL_TAKEN",
			})
			return
		}
		logrus.WithError(err).Error("Failed to create profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create account", Code: "INTERNAL_ERROR"})
		return
	}

	if err := h.auditSvc.LogRegistration(profile.ID, profile.Email, utils.ClientIP(c), utils.RequestUserAgent(c)); err != nil {
		logrus.WithError(err).Warn("Failed to record registration audit entry")
	}

	tokens, err := h.issueTokens(profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate tokens", Code: "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusCreated, tokens)
}

// Login authenticates a profile by email and password.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := utils.ClientIP(c)
	ua := utils.RequestUserAgent(c)

	profile, err := h.profileRepo.GetProfileByEmail(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to look up account", Code: "INTERNAL_ERROR"})
		return
	}
	if profile == nil {
		h.logFailedLogin(nil, email, ip, ua, "unknown email")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "Invalid email or password",
			Code:  "INVALID_CREDENTIALS",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		h.logFailedLogin(&profile.ID, email, ip, ua, "wrong password")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "Invalid email or password",
			Code:  "INVALID_CREDENTIALS",
		})
		return
	}

	if profile.AccountStatus == models.AccountDisabled || profile.AccountStatus == models.AccountSuspended {
		h.logFailedLogin(&profile.ID, email, ip, ua, "account "+string(profile.AccountStatus))
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "This account has been " + string(profile.AccountStatus),
			Code:  "ACCOUNT_DISABLED",
		})
		return
	}

	if err := h.profileRepo.UpdateLastLogin(profile.ID); err != nil {
		logrus.WithError(err).Warn("Failed to update last login timestamp")
	}
	if err := h.auditSvc.LogLogin(&profile.ID, profile.Email, ip, ua, true, ""); err != nil {
		logrus.WithError(err).Warn("Failed to record login audit entry")
	}

	tokens, err := h.issueTokens(profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate tokens", Code: "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// RefreshToken exchanges a valid refresh token for a new token pair.
// Role and account status are re-read from the database so a token issued
// before an activation decision picks up the new state.
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "Invalid or expired refresh token",
			Code:  "INVALID_REFRESH_TOKEN",
		})
		return
	}

	profile, err := h.profileRepo.GetProfileByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to look up account", Code: "INTERNAL_ERROR"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Account no longer exists", Code: "INVALID_REFRESH_TOKEN"})
		return
	}
	if profile.AccountStatus == models.AccountDisabled || profile.AccountStatus == models.AccountSuspended {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "This account has been " + string(profile.AccountStatus),
			Code:  "ACCOUNT_DISABLED",
		})
		return
	}

	tokens, err := h.issueTokens(profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate tokens", Code: "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// GetProfile returns the authenticated user's profile.
// GET /api/v1/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	profile, err := h.profileRepo.GetProfileByID(userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch profile", Code: "INTERNAL_ERROR"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Profile not found", Code: "NOT_FOUND"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile updates the authenticated user's contact details.
// Email, role and account status are not changeable here.
// PUT /api/v1/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	if err := h.profileRepo.UpdateProfileInfo(userCtx.UserID, strings.TrimSpace(req.FullName), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Company)); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update profile", Code: "INTERNAL_ERROR"})
		return
	}

	profile, err := h.profileRepo.GetProfileByID(userCtx.UserID)
	if err != nil || profile == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch updated profile", Code: "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *AuthHandler) issueTokens(profile *models.Profile) (*TokenResponse, error) {
	access, err := h.jwtService.GenerateAccessToken(profile.ID, profile.Email, string(profile.Role), string(profile.AccountStatus))
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwtService.GenerateRefreshToken(profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Profile:      profile,
	}, nil
}

func (h *AuthHandler) logFailedLogin(actorID *uuid.UUID, email, ip, ua, reason string) {
	if err := h.auditSvc.LogLogin(actorID, email, ip, ua, false, reason); err != nil {
		logrus.WithError(err).Warn("Failed to record failed login audit entry")
	}
}
