package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/internal/utils"
)

// ReviewHandler exposes the staff-facing document and vehicle review queue.
type ReviewHandler struct {
	approvalSvc *services.ApprovalService
	auditSvc    *services.AuditService
}

func NewReviewHandler(approvalSvc *services.ApprovalService, auditSvc *services.AuditService) *ReviewHandler {
	return &ReviewHandler{
		approvalSvc: approvalSvc,
		auditSvc:    auditSvc,
	}
}

type ReviewDocumentRequest struct {
	Approve bool   `json:"approve"`
	Remarks string `json:"remarks"`
}

type DecideVehicleRequest struct {
	Approve bool `json:"approve"`
}

// ListVehicles returns vehicles in a given lifecycle state, newest first.
// Defaults to the pending review queue. A ?chassis= parameter looks up a
// single vehicle instead.
// GET /api/v1/review/vehicles?status=pending
// GET /api/v1/review/vehicles?chassis=JTDBR32E720123456
func (h *ReviewHandler) ListVehicles(c *gin.Context) {
	if chassis := c.Query("chassis"); chassis != "" {
		vehicle, err := h.approvalSvc.FindVehicleByChassis(chassis)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"vehicles": []interface{}{vehicle}, "count": 1})
		return
	}

	status, ok := vehicleStatusQuery(c)
	if !ok {
		return
	}
	limit, offset := paginationParams(c)

	vehicles, err := h.approvalSvc.ListVehiclesByStatus(status, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles, "count": len(vehicles)})
}

// GetVehicle returns any vehicle together with its documents.
// GET /api/v1/review/vehicles/:id
func (h *ReviewHandler) GetVehicle(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	vehicle, err := h.approvalSvc.GetVehicle(vehicleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	docs, err := h.approvalSvc.ListVehicleDocuments(userCtx.UserID, vehicleID, true)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle, "documents": docs})
}

// ReviewDocument approves or rejects a single document on a pending vehicle.
// Rejections require remarks telling the customer what to fix.
// POST /api/v1/review/documents/:id
func (h *ReviewHandler) ReviewDocument(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	documentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	doc, err := h.approvalSvc.ReviewDocument(userCtx.UserID, documentID, req.Approve, req.Remarks)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	action := "document_rejected"
	if req.Approve {
		action = "document_approved"
	}
	if err := h.auditSvc.LogEntityAction(userCtx.UserID, action, "document", doc.ID, utils.ClientIP(c), utils.RequestUserAgent(c), map[string]interface{}{
		"vehicle_id": doc.VehicleID.String(),
		"doc_type":   string(doc.Type),
	}); err != nil {
		logrus.WithError(err).Warn("Failed to record document review audit entry")
	}

	c.JSON(http.StatusOK, doc)
}

// DecideVehicle records the final approval or rejection of a pending vehicle.
// POST /api/v1/review/vehicles/:id/decision
func (h *ReviewHandler) DecideVehicle(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req DecideVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	vehicle, err := h.approvalSvc.DecideVehicle(userCtx.UserID, vehicleID, req.Approve)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	action := "vehicle_rejected"
	if req.Approve {
		action = "vehicle_approved"
	}
	if err := h.auditSvc.LogEntityAction(userCtx.UserID, action, "vehicle", vehicle.ID, utils.ClientIP(c), utils.RequestUserAgent(c), map[string]interface{}{
		"chassis_number": vehicle.ChassisNumber,
	}); err != nil {
		logrus.WithError(err).Warn("Failed to record vehicle decision audit entry")
	}

	c.JSON(http.StatusOK, vehicle)
}
