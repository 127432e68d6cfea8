package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/models"
)

// InvoiceService handles the invoice workflow. A vehicle gets at most one
// invoice; owners request it once the vehicle is approved, and staff either
// move the request to processing and issue it later, or issue directly.
type InvoiceService struct {
	db          database.DB
	invoiceRepo *database.InvoiceRepository
	vehicleRepo *database.VehicleRepository
	profileRepo *database.ProfileRepository
	notifSvc    *NotificationService
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	db database.DB,
	invoiceRepo *database.InvoiceRepository,
	vehicleRepo *database.VehicleRepository,
	profileRepo *database.ProfileRepository,
	notifSvc *NotificationService,
) *InvoiceService {
	return &InvoiceService{
		db:          db,
		invoiceRepo: invoiceRepo,
		vehicleRepo: vehicleRepo,
		profileRepo: profileRepo,
		notifSvc:    notifSvc,
	}
}

// RequestInvoice creates an invoice request for an approved vehicle. The
// invoices table has a unique constraint on vehicle_id, so a concurrent
// duplicate request surfaces as a conflict rather than a second row.
func (s *InvoiceService) RequestInvoice(ownerID, vehicleID uuid.UUID) (*models.Invoice, error) {
	vehicle, err := s.vehicleRepo.GetVehicleByID(vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	}
	if vehicle.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: vehicle belongs to another account", ErrForbidden)
	}
	if vehicle.Status != models.VehicleStatusApproved {
		return nil, fmt.Errorf("%w: invoices can only be requested for approved vehicles", ErrInvalidState)
	}

	existing, err := s.invoiceRepo.GetInvoiceByVehicle(vehicleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: an invoice already exists for vehicle %s", ErrConflict, vehicle.ChassisNumber)
	}

	invoice, err := s.invoiceRepo.CreateRequest(vehicleID, ownerID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: an invoice already exists for vehicle %s", ErrConflict, vehicle.ChassisNumber)
		}
		return nil, err
	}

	return invoice, nil
}

// GetInvoiceForOwner returns an invoice after checking ownership
func (s *InvoiceService) GetInvoiceForOwner(ownerID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetInvoiceByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
	}
	if invoice.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: invoice belongs to another account", ErrForbidden)
	}
	return invoice, nil
}

// ListOwnerInvoices returns all invoices for the given owner
func (s *InvoiceService) ListOwnerInvoices(ownerID uuid.UUID) ([]*models.Invoice, error) {
	return s.invoiceRepo.ListInvoicesByOwner(ownerID)
}

// ListInvoicesByStatus returns invoices in the given status, for staff queues
func (s *InvoiceService) ListInvoicesByStatus(status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.invoiceRepo.ListInvoicesByStatus(status, limit, offset)
}

// GetDownloadableInvoice returns an invoice ready for download. The invoice
// must be issued with a stored file and belong to the caller unless allowAny.
func (s *InvoiceService) GetDownloadableInvoice(callerID, invoiceID uuid.UUID, allowAny bool) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetInvoiceByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
	}
	if !allowAny && invoice.OwnerID != callerID {
		return nil, fmt.Errorf("%w: invoice belongs to another account", ErrForbidden)
	}
	if !invoice.Downloadable() {
		return nil, fmt.Errorf("%w: invoice is %s and has no downloadable file yet", ErrInvalidState, invoice.Status)
	}
	return invoice, nil
}

// MarkProcessing moves a requested invoice to processing
func (s *InvoiceService) MarkProcessing(invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetInvoiceByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
	}
	if invoice.Status != models.InvoiceStatusRequested {
		return nil, fmt.Errorf("%w: only requested invoices can move to processing", ErrInvalidState)
	}

	if err := s.invoiceRepo.UpdateStatus(invoiceID, models.InvoiceStatusProcessing); err != nil {
		return nil, err
	}

	return s.invoiceRepo.GetInvoiceByID(invoiceID)
}

// IssueInvoice attaches the generated invoice file to a requested or
// processing invoice and marks it issued. The owner notification is queued
// in the same transaction.
func (s *InvoiceService) IssueInvoice(issuerID, invoiceID uuid.UUID, filePath string) (*models.Invoice, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: invoice file is required", ErrValidation)
	}

	invoice, err := s.invoiceRepo.GetInvoiceByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
	}
	if invoice.Status != models.InvoiceStatusRequested && invoice.Status != models.InvoiceStatusProcessing {
		return nil, fmt.Errorf("%w: invoice is already %s", ErrInvalidState, invoice.Status)
	}

	vehicle, err := s.vehicleRepo.GetVehicleByID(invoice.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, invoice.VehicleID)
	}

	owner, err := s.profileRepo.GetProfileByID(invoice.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: invoice owner %s", ErrNotFound, invoice.OwnerID)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.invoiceRepo.MarkIssuedTx(tx, invoiceID, issuerID, filePath); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("The invoice for vehicle %s has been issued and is ready for download.", vehicle.ChassisNumber)
	if err := s.notifSvc.QueueTx(tx, models.NotificationInvoiceIssued, "Invoice issued", message, owner.ID, owner.Email, uuid.NullUUID{}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invoice issuance: %w", err)
	}

	return s.invoiceRepo.GetInvoiceByID(invoiceID)
}

// IssueDirect creates and issues an invoice for an approved vehicle that has
// no prior request from the owner.
func (s *InvoiceService) IssueDirect(issuerID, vehicleID uuid.UUID, filePath string) (*models.Invoice, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: invoice file is required", ErrValidation)
	}

	vehicle, err := s.vehicleRepo.GetVehicleByID(vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	}
	if vehicle.Status != models.VehicleStatusApproved {
		return nil, fmt.Errorf("%w: invoices can only be issued for approved vehicles", ErrInvalidState)
	}

	existing, err := s.invoiceRepo.GetInvoiceByVehicle(vehicleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: an invoice already exists for vehicle %s", ErrConflict, vehicle.ChassisNumber)
	}

	owner, err := s.profileRepo.GetProfileByID(vehicle.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: vehicle owner %s", ErrNotFound, vehicle.OwnerID)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invoice, err := s.invoiceRepo.CreateIssuedTx(tx, vehicleID, vehicle.OwnerID, issuerID, filePath)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: an invoice already exists for vehicle %s", ErrConflict, vehicle.ChassisNumber)
		}
		return nil, err
	}

	message := fmt.Sprintf("The invoice for vehicle %s has been issued and is ready for download.", vehicle.ChassisNumber)
	if err := s.notifSvc.QueueTx(tx, models.NotificationInvoiceIssued, "Invoice issued", message, owner.ID, owner.Email, uuid.NullUUID{}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invoice issuance: %w", err)
	}

	return invoice, nil
}
