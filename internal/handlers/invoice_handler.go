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
	"github.com/cargolink/portal-backend/internal/utils"
	"github.com/cargolink/portal-backend/pkg/objstore"
)

type InvoiceHandler struct {
	invoiceSvc *services.InvoiceService
	auditSvc   *services.AuditService
	store      *objstore.Client
	storageCfg config.StorageConfig
	maxSizeMB  int
}

func NewInvoiceHandler(invoiceSvc *services.InvoiceService, auditSvc *services.AuditService, store *objstore.Client, cfg *config.Config) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceSvc: invoiceSvc,
		auditSvc:   auditSvc,
		store:      store,
		storageCfg: cfg.Storage,
		maxSizeMB:  cfg.Upload.MaxSizeMB,
	}
}

// RequestInvoice opens an invoice request for an approved vehicle.
// Each vehicle gets at most one invoice.
// POST /api/v1/vehicles/:id/invoice
func (h *InvoiceHandler) RequestInvoice(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceSvc.RequestInvoice(userCtx.UserID, vehicleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// ListInvoices returns the authenticated customer's invoices.
// GET /api/v1/invoices
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	invoices, err := h.invoiceSvc.ListOwnerInvoices(userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

// GetInvoice returns one of the authenticated customer's invoices.
// GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	invoiceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceSvc.GetInvoiceForOwner(userCtx.UserID, invoiceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// DownloadInvoice streams an issued invoice file to its owner, or to
// staff and admin users.
// GET /api/v1/invoices/:id/download
func (h *InvoiceHandler) DownloadInvoice(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	invoiceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	allowAny := userCtx.Role == string(models.RoleStaff) || userCtx.Role == string(models.RoleAdmin)

	invoice, err := h.invoiceSvc.GetDownloadableInvoice(userCtx.UserID, invoiceID, allowAny)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	fileName := fmt.Sprintf("invoice-%s.pdf", invoice.ID)

	if c.Query("presign") == "true" {
		url, err := h.store.PresignedGet(ctx, h.storageCfg.InvoicesBucket, invoice.FilePath.String, 15*time.Minute, fileName)
		if err != nil {
			logrus.WithError(err).WithField("key", invoice.FilePath.String).Error("Failed to presign invoice URL")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate download link", Code: "STORAGE_ERROR"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "expires_in_seconds": 900})
		return
	}

	reader, info, err := h.store.Download(ctx, h.storageCfg.InvoicesBucket, invoice.FilePath.String)
	if err != nil {
		logrus.WithError(err).WithField("key", invoice.FilePath.String).Error("Failed to fetch invoice from storage")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch invoice file", Code: "STORAGE_ERROR"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", fileName),
	})
}

// ListByStatus returns invoices in a given workflow state for the back
// office. Defaults to freshly requested invoices.
// GET /api/v1/review/invoices?status=requested
func (h *InvoiceHandler) ListByStatus(c *gin.Context) {
	status := models.InvoiceStatus(c.DefaultQuery("status", string(models.InvoiceStatusRequested)))
	if !models.ValidInvoiceStatus(status) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid invoice status: " + string(status),
			Code:  "INVALID_STATUS",
		})
		return
	}
	limit, offset := paginationParams(c)

	invoices, err := h.invoiceSvc.ListInvoicesByStatus(status, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

// MarkProcessing moves a requested invoice into the processing state so
// other staff can see it is being worked on.
// POST /api/v1/review/invoices/:id/processing
func (h *InvoiceHandler) MarkProcessing(c *gin.Context) {
	invoiceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceSvc.MarkProcessing(invoiceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// Issue uploads the finished invoice PDF and marks the invoice issued.
// POST /api/v1/review/invoices/:id/issue
func (h *InvoiceHandler) Issue(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	invoiceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	key, ok := h.storeInvoiceFile(c, invoiceID)
	if !ok {
		return
	}

	invoice, err := h.invoiceSvc.IssueInvoice(userCtx.UserID, invoiceID, key)
	if err != nil {
		h.removeOrphan(c, key)
		respondServiceError(c, err)
		return
	}

	h.logIssued(c, userCtx.UserID, invoice)

	c.JSON(http.StatusOK, invoice)
}

// IssueDirect issues an invoice for an approved vehicle that has no
// invoice request yet, in a single step.
// POST /api/v1/review/vehicles/:id/invoice
func (h *InvoiceHandler) IssueDirect(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	key, ok := h.storeInvoiceFile(c, vehicleID)
	if !ok {
		return
	}

	invoice, err := h.invoiceSvc.IssueDirect(userCtx.UserID, vehicleID, key)
	if err != nil {
		h.removeOrphan(c, key)
		respondServiceError(c, err)
		return
	}

	h.logIssued(c, userCtx.UserID, invoice)

	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) logIssued(c *gin.Context, issuerID uuid.UUID, invoice *models.Invoice) {
	if err := h.auditSvc.LogEntityAction(issuerID, "invoice_issued", "invoice", invoice.ID, utils.ClientIP(c), utils.RequestUserAgent(c), map[string]interface{}{
		"vehicle_id": invoice.VehicleID.String(),
		"owner_id":   invoice.OwnerID.String(),
	}); err != nil {
		logrus.WithError(err).Warn("Failed to record invoice issuance audit entry")
	}
}

// storeInvoiceFile validates the multipart invoice upload and writes it
// to the invoices bucket, returning the object key.
func (h *InvoiceHandler) storeInvoiceFile(c *gin.Context, scopeID uuid.UUID) (string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "file form field is required",
			Code:  "INVALID_REQUEST",
		})
		return "", false
	}

	maxBytes := int64(h.maxSizeMB) << 20
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("File exceeds the %dMB upload limit", h.maxSizeMB),
			Code:  "FILE_TOO_LARGE",
		})
		return "", false
	}

	if strings.ToLower(filepath.Ext(fileHeader.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invoices must be uploaded as PDF",
			Code:  "UNSUPPORTED_FILE_TYPE",
		})
		return "", false
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read uploaded file", Code: "INTERNAL_ERROR"})
		return "", false
	}
	defer src.Close()

	key := fmt.Sprintf("%s/%s.pdf", scopeID, uuid.New().String())

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	if err := h.store.Upload(ctx, h.storageCfg.InvoicesBucket, key, src, fileHeader.Size, "application/pdf"); err != nil {
		logrus.WithError(err).Error("Failed to store invoice file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to store uploaded file", Code: "STORAGE_ERROR"})
		return "", false
	}

	return key, true
}

func (h *InvoiceHandler) removeOrphan(c *gin.Context, key string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	if err := h.store.Remove(ctx, h.storageCfg.InvoicesBucket, key); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to remove orphaned invoice file")
	}
}
