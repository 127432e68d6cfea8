package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/internal/services"
)

type VehicleHandler struct {
	approvalSvc *services.ApprovalService
}

func NewVehicleHandler(approvalSvc *services.ApprovalService) *VehicleHandler {
	return &VehicleHandler{approvalSvc: approvalSvc}
}

type RegisterVehicleRequest struct {
	ChassisNumber string `json:"chassis_number" binding:"required"`
	Make          string `json:"make"`
	Model         string `json:"model"`
}

// RegisterVehicle registers a new vehicle for the authenticated customer.
// POST /api/v1/vehicles
func (h *VehicleHandler) RegisterVehicle(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	vehicle, err := h.approvalSvc.RegisterVehicle(userCtx.UserID, req.ChassisNumber, req.Make, req.Model)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, vehicle)
}

// ListVehicles returns the authenticated customer's vehicles.
// GET /api/v1/vehicles
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicles, err := h.approvalSvc.ListOwnerVehicles(userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles, "count": len(vehicles)})
}

// GetVehicle returns one of the authenticated customer's vehicles.
// GET /api/v1/vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	vehicle, err := h.approvalSvc.GetVehicleForOwner(userCtx.UserID, vehicleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, vehicle)
}

// SubmitVehicle submits a vehicle with a complete document set for review.
// POST /api/v1/vehicles/:id/submit
func (h *VehicleHandler) SubmitVehicle(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	vehicle, err := h.approvalSvc.SubmitForReview(userCtx.UserID, vehicleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, vehicle)
}

// ListVehicleDocuments returns the documents attached to one of the
// authenticated customer's vehicles.
// GET /api/v1/vehicles/:id/documents
func (h *VehicleHandler) ListVehicleDocuments(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	docs, err := h.approvalSvc.ListVehicleDocuments(userCtx.UserID, vehicleID, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// paginationParams reads limit/offset query parameters with defaults.
func paginationParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// vehicleStatusQuery reads and validates an optional ?status= parameter,
// defaulting to pending.
func vehicleStatusQuery(c *gin.Context) (models.VehicleStatus, bool) {
	status := models.VehicleStatus(c.DefaultQuery("status", string(models.VehicleStatusPending)))
	if !models.ValidVehicleStatus(status) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid vehicle status: " + string(status),
			Code:  "INVALID_STATUS",
		})
		return "", false
	}
	return status, true
}
