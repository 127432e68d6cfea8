package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/internal/utils"
)

// AdminHandler exposes user administration and dashboard statistics.
type AdminHandler struct {
	profileRepo    *database.ProfileRepository
	vehicleRepo    *database.VehicleRepository
	invoiceRepo    *database.InvoiceRepository
	activationRepo *database.ActivationRepository
	auditSvc       *services.AuditService
}

func NewAdminHandler(profileRepo *database.ProfileRepository, vehicleRepo *database.VehicleRepository, invoiceRepo *database.InvoiceRepository, activationRepo *database.ActivationRepository, auditSvc *services.AuditService) *AdminHandler {
	return &AdminHandler{
		profileRepo:    profileRepo,
		vehicleRepo:    vehicleRepo,
		invoiceRepo:    invoiceRepo,
		activationRepo: activationRepo,
		auditSvc:       auditSvc,
	}
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type UpdateAccountStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListUsers returns all profiles, paginated.
// GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := paginationParams(c)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	profiles, err := h.profileRepo.ListProfiles(limit, offset)
	if err != nil {
		logrus.WithError(err).Error("Failed to list profiles")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list users", Code: "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": profiles, "count": len(profiles)})
}

// UpdateRole changes a user's role. Admins cannot demote themselves, so
// at least one admin always remains.
// PUT /api/v1/admin/users/:id/role
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	targetID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	role := models.Role(req.Role)
	if !models.ValidRole(role) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid role: " + req.Role,
			Code:  "INVALID_ROLE",
		})
		return
	}

	if targetID == userCtx.UserID && role != models.RoleAdmin {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "You cannot remove your own admin role",
			Code:  "SELF_DEMOTION",
		})
		return
	}

	if err := h.profileRepo.UpdateRole(targetID, role); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found", Code: "NOT_FOUND"})
		return
	}

	if err := h.auditSvc.LogEntityAction(userCtx.UserID, "role_changed", "profile", targetID, utils.ClientIP(c), utils.RequestUserAgent(c), map[string]interface{}{
		"new_role": string(role),
	}); err != nil {
		logrus.WithError(err).Warn("Failed to record role change audit entry")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "role": role})
}

// UpdateAccountStatus changes a user's account status, for example to
// suspend or re-enable an account outside the activation workflow.
// PUT /api/v1/admin/users/:id/status
func (h *AdminHandler) UpdateAccountStatus(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	targetID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	status := models.AccountStatus(req.Status)
	if !models.ValidAccountStatus(status) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid account status: " + req.Status,
			Code:  "INVALID_STATUS",
		})
		return
	}

	if targetID == userCtx.UserID && status != models.AccountActive {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "You cannot disable your own account",
			Code:  "SELF_DISABLE",
		})
		return
	}

	if err := h.profileRepo.UpdateAccountStatus(targetID, status); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found", Code: "NOT_FOUND"})
		return
	}

	if err := h.auditSvc.LogEntityAction(userCtx.UserID, "account_status_changed", "profile", targetID, utils.ClientIP(c), utils.RequestUserAgent(c), map[string]interface{}{
		"new_status": string(status),
	}); err != nil {
		logrus.WithError(err).Warn("Failed to record account status audit entry")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account status updated", "account_status": status})
}

// Dashboard returns aggregate counts for the admin overview page.
// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	accounts, err := h.profileRepo.CountProfilesByStatus()
	if err != nil {
		logrus.WithError(err).Error("Failed to count profiles")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build dashboard", Code: "INTERNAL_ERROR"})
		return
	}

	vehicles, err := h.vehicleRepo.CountVehiclesByStatus()
	if err != nil {
		logrus.WithError(err).Error("Failed to count vehicles")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build dashboard", Code: "INTERNAL_ERROR"})
		return
	}

	invoices, err := h.invoiceRepo.CountInvoicesByStatus()
	if err != nil {
		logrus.WithError(err).Error("Failed to count invoices")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build dashboard", Code: "INTERNAL_ERROR"})
		return
	}

	pendingActivations, err := h.activationRepo.CountPendingRequests()
	if err != nil {
		logrus.WithError(err).Error("Failed to count activation requests")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build dashboard", Code: "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts":            accounts,
		"vehicles":            vehicles,
		"invoices":            invoices,
		"pending_activations": pendingActivations,
	})
}
