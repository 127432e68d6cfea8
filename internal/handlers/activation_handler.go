package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/portal-backend/internal/config"
	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/internal/utils"
	"github.com/cargolink/portal-backend/pkg/objstore"
)

type ActivationHandler struct {
	activationSvc *services.ActivationService
	auditSvc      *services.AuditService
	store         *objstore.Client
	storageCfg    config.StorageConfig
	maxSizeMB     int
}

func NewActivationHandler(activationSvc *services.ActivationService, auditSvc *services.AuditService, store *objstore.Client, cfg *config.Config) *ActivationHandler {
	return &ActivationHandler{
		activationSvc: activationSvc,
		auditSvc:      auditSvc,
		store:         store,
		storageCfg:    cfg.Storage,
		maxSizeMB:     cfg.Upload.MaxSizeMB,
	}
}

type ReviewActivationRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Submit files an account activation request with the company name and
// two supporting documents: an authorization letter and an ID document.
// POST /api/v1/activation
func (h *ActivationHandler) Submit(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	companyName := strings.TrimSpace(c.PostForm("company_name"))
	if companyName == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "company_name form field is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 120*time.Second)
	defer cancel()

	letterKey, ok := h.storeVerificationFile(c, ctx, userCtx.UserID, "authorization_letter")
	if !ok {
		return
	}
	idKey, ok := h.storeVerificationFile(c, ctx, userCtx.UserID, "id_document")
	if !ok {
		h.removeOrphan(ctx, letterKey)
		return
	}

	request, err := h.activationSvc.SubmitRequest(userCtx.UserID, companyName, letterKey, idKey)
	if err != nil {
		h.removeOrphan(ctx, letterKey)
		h.removeOrphan(ctx, idKey)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// Status returns the latest activation request for the authenticated user.
// The request field is null when nothing has been filed yet.
// GET /api/v1/activation
func (h *ActivationHandler) Status(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	request, err := h.activationSvc.GetStatus(userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_status": userCtx.AccountStatus,
		"request":        request,
	})
}

// ListPending returns the staff queue of unreviewed activation requests.
// GET /api/v1/review/activations
func (h *ActivationHandler) ListPending(c *gin.Context) {
	limit, offset := paginationParams(c)

	requests, err := h.activationSvc.ListPending(limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// DownloadFile streams one of the supporting documents of an activation
// request to a staff reviewer. Kind is authorization_letter or id_document.
// GET /api/v1/review/activations/:id/files/:kind
func (h *ActivationHandler) DownloadFile(c *gin.Context) {
	requestID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	request, err := h.activationSvc.GetRequest(requestID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var key string
	switch c.Param("kind") {
	case "authorization_letter":
		key = request.AuthorizationLetter
	case "id_document":
		key = request.IDDocument
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Unknown file kind",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	reader, info, err := h.store.Download(ctx, h.storageCfg.VerificationBucket, key)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to fetch verification document from storage")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch file", Code: "STORAGE_ERROR"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filepath.Base(key)),
	})
}

// Review approves or rejects a pending activation request. Approval
// activates the customer's account.
// POST /api/v1/review/activations/:id
func (h *ActivationHandler) Review(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	requestID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req ReviewActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	request, err := h.activationSvc.Review(userCtx.UserID, requestID, req.Approve, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	action := "activation_rejected"
	if req.Approve {
		action = "activation_approved"
	}
	if err := h.auditSvc.LogEntityAction(userCtx.UserID, action, "activation_request", request.ID, utils.ClientIP(c), utils.RequestUserAgent(c), map[string]interface{}{
		"user_id": request.UserID.String(),
	}); err != nil {
		logrus.WithError(err).Warn("Failed to record activation review audit entry")
	}

	c.JSON(http.StatusOK, request)
}

// storeVerificationFile validates and uploads a single named multipart file
// to the verification bucket, returning the object key.
func (h *ActivationHandler) storeVerificationFile(c *gin.Context, ctx context.Context, userID uuid.UUID, field string) (string, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: field + " form field is required",
			Code:  "INVALID_REQUEST",
		})
		return "", false
	}

	if !h.validVerificationFile(c, fileHeader) {
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType := allowedDocumentExtensions[ext]

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read uploaded file", Code: "INTERNAL_ERROR"})
		return "", false
	}
	defer src.Close()

	key := fmt.Sprintf("%s/%s/%s%s", userID, field, uuid.New().String(), ext)

	if err := h.store.Upload(ctx, h.storageCfg.VerificationBucket, key, src, fileHeader.Size, contentType); err != nil {
		logrus.WithError(err).Error("Failed to store verification document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to store uploaded file", Code: "STORAGE_ERROR"})
		return "", false
	}

	return key, true
}

func (h *ActivationHandler) validVerificationFile(c *gin.Context, fileHeader *multipart.FileHeader) bool {
	maxBytes := int64(h.maxSizeMB) << 20
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("File exceeds the %dMB upload limit", h.maxSizeMB),
			Code:  "FILE_TOO_LARGE",
		})
		return false
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := allowedDocumentExtensions[ext]; !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Only PDF, JPG and PNG files are accepted",
			Code:  "UNSUPPORTED_FILE_TYPE",
		})
		return false
	}

	return true
}

func (h *ActivationHandler) removeOrphan(ctx context.Context, key string) {
	if err := h.store.Remove(ctx, h.storageCfg.VerificationBucket, key); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to remove orphaned verification file")
	}
}
