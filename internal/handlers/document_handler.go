package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/portal-backend/internal/config"
	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/pkg/objstore"
)

// allowedDocumentExtensions maps accepted upload extensions to the
// content type stored alongside the object.
var allowedDocumentExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type DocumentHandler struct {
	approvalSvc *services.ApprovalService
	store       *objstore.Client
	storageCfg  config.StorageConfig
	maxSizeMB   int
}

func NewDocumentHandler(approvalSvc *services.ApprovalService, store *objstore.Client, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		approvalSvc: approvalSvc,
		store:       store,
		storageCfg:  cfg.Storage,
		maxSizeMB:   cfg.Upload.MaxSizeMB,
	}
}

// UploadDocument attaches a verification document to one of the
// authenticated customer's vehicles. Re-uploading a type the vehicle
// already has replaces the previous file.
// POST /api/v1/vehicles/:id/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	docType := c.PostForm("doc_type")
	if docType == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "doc_type form field is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "file form field is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	maxBytes := int64(h.maxSizeMB) << 20
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("File exceeds the %dMB upload limit", h.maxSizeMB),
			Code:  "FILE_TOO_LARGE",
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowedDocumentExtensions[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Only PDF, JPG and PNG files are accepted",
			Code:  "UNSUPPORTED_FILE_TYPE",
		})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read uploaded file", Code: "INTERNAL_ERROR"})
		return
	}
	defer src.Close()

	key := fmt.Sprintf("%s/%s/%s%s", vehicleID, docType, uuid.New().String(), ext)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	if err := h.store.Upload(ctx, h.storageCfg.DocumentsBucket, key, src, fileHeader.Size, contentType); err != nil {
		logrus.WithError(err).Error("Failed to store uploaded document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to store uploaded file", Code: "STORAGE_ERROR"})
		return
	}

	doc, err := h.approvalSvc.UploadDocument(userCtx.UserID, vehicleID, docType, fileHeader.Filename, key)
	if err != nil {
		// The object was already written; clean it up so rejected
		// uploads do not accumulate in the bucket.
		if rmErr := h.store.Remove(ctx, h.storageCfg.DocumentsBucket, key); rmErr != nil {
			logrus.WithError(rmErr).WithField("key", key).Warn("Failed to remove orphaned upload")
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// DownloadDocument streams a document file back to its owner, or to
// staff and admin reviewers.
// GET /api/v1/documents/:id/download
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	documentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	allowAny := userCtx.Role == string(models.RoleStaff) || userCtx.Role == string(models.RoleAdmin)

	doc, err := h.approvalSvc.GetDocumentForDownload(userCtx.UserID, documentID, allowAny)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	// ?presign=true hands the client a short-lived direct URL instead of
	// streaming the file through the API
	if c.Query("presign") == "true" {
		url, err := h.store.PresignedGet(ctx, h.storageCfg.DocumentsBucket, doc.FilePath, 15*time.Minute, doc.FileName)
		if err != nil {
			logrus.WithError(err).WithField("key", doc.FilePath).Error("Failed to presign document URL")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate download link", Code: "STORAGE_ERROR"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "expires_in_seconds": 900})
		return
	}

	reader, info, err := h.store.Download(ctx, h.storageCfg.DocumentsBucket, doc.FilePath)
	if err != nil {
		logrus.WithError(err).WithField("key", doc.FilePath).Error("Failed to fetch document from storage")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch document file", Code: "STORAGE_ERROR"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.FileName),
	})
}

// DeleteDocument removes a document from an editable vehicle.
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	documentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.approvalSvc.DeleteDocument(userCtx.UserID, documentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.store.Remove(ctx, h.storageCfg.DocumentsBucket, doc.FilePath); err != nil {
		logrus.WithError(err).WithField("key", doc.FilePath).Warn("Failed to remove document object")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
