package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/models"
)

// ApprovalService handles the vehicle document verification workflow:
// vehicle registration, document uploads, submission for review, staff
// document review and the final vehicle decision.
type ApprovalService struct {
	db          database.DB
	vehicleRepo *database.VehicleRepository
	docRepo     *database.DocumentRepository
	profileRepo *database.ProfileRepository
	notifSvc    *NotificationService
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	db database.DB,
	vehicleRepo *database.VehicleRepository,
	docRepo *database.DocumentRepository,
	profileRepo *database.ProfileRepository,
	notifSvc *NotificationService,
) *ApprovalService {
	return &ApprovalService{
		db:          db,
		vehicleRepo: vehicleRepo,
		docRepo:     docRepo,
		profileRepo: profileRepo,
		notifSvc:    notifSvc,
	}
}

// RegisterVehicle creates a new vehicle in draft status
func (s *ApprovalService) RegisterVehicle(ownerID uuid.UUID, chassisNumber, make, model string) (*models.Vehicle, error) {
	chassisNumber = models.NormalizeChassisNumber(chassisNumber)
	if chassisNumber == "" {
		return nil, fmt.Errorf("%w: chassis number is required", ErrValidation)
	}
	if len(chassisNumber) > 32 {
		return nil, fmt.Errorf("%w: chassis number must be at most 32 characters", ErrValidation)
	}

	vehicle, err := s.vehicleRepo.CreateVehicle(ownerID, chassisNumber, make, model)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: vehicle with chassis number %s already exists", ErrConflict, chassisNumber)
		}
		return nil, err
	}

	return vehicle, nil
}

// GetVehicleForOwner returns a vehicle after checking ownership
func (s *ApprovalService) GetVehicleForOwner(ownerID, vehicleID uuid.UUID) (*models.Vehicle, error) {
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
	return vehicle, nil
}

// GetVehicle returns a vehicle without an ownership check, for staff use
func (s *ApprovalService) GetVehicle(vehicleID uuid.UUID) (*models.Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetVehicleByID(vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	}
	return vehicle, nil
}

// FindVehicleByChassis looks a vehicle up by chassis number, for the staff
// search box
func (s *ApprovalService) FindVehicleByChassis(chassisNumber string) (*models.Vehicle, error) {
	chassisNumber = models.NormalizeChassisNumber(chassisNumber)
	if chassisNumber == "" {
		return nil, fmt.Errorf("%w: chassis number is required", ErrValidation)
	}
	vehicle, err := s.vehicleRepo.GetVehicleByChassis(chassisNumber)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: no vehicle with chassis number %s", ErrNotFound, chassisNumber)
	}
	return vehicle, nil
}

// ListOwnerVehicles returns all vehicles owned by the given account
func (s *ApprovalService) ListOwnerVehicles(ownerID uuid.UUID) ([]*models.Vehicle, error) {
	return s.vehicleRepo.ListVehiclesByOwner(ownerID)
}

// ListVehiclesByStatus returns vehicles in the given status, for staff queues
func (s *ApprovalService) ListVehiclesByStatus(status models.VehicleStatus, limit, offset int) ([]*models.Vehicle, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.vehicleRepo.ListVehiclesByStatus(status, limit, offset)
}

// ListVehicleDocuments returns the documents uploaded for a vehicle. Owners
// may only see their own vehicles; staff pass allowAny.
func (s *ApprovalService) ListVehicleDocuments(callerID, vehicleID uuid.UUID, allowAny bool) ([]*models.Document, error) {
	vehicle, err := s.vehicleRepo.GetVehicleByID(vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	}
	if !allowAny && vehicle.OwnerID != callerID {
		return nil, fmt.Errorf("%w: vehicle belongs to another account", ErrForbidden)
	}
	return s.docRepo.ListDocumentsByVehicle(vehicleID)
}

// UploadDocument stores a document record for a vehicle. Uploading a type
// that already exists replaces the file and resets the document to pending,
// unless the existing document is already approved. Uploads are only allowed
// while the vehicle is in draft or rejected status.
func (s *ApprovalService) UploadDocument(ownerID, vehicleID uuid.UUID, rawType, fileName, filePath string) (*models.Document, error) {
	docType, ok := models.NormalizeDocumentType(rawType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrValidation, rawType)
	}

	vehicle, err := s.GetVehicleForOwner(ownerID, vehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.Editable() {
		return nil, fmt.Errorf("%w: documents can only be uploaded while the vehicle is in draft or rejected status", ErrInvalidState)
	}

	existing, err := s.docRepo.GetDocumentByVehicleAndType(vehicleID, docType)
	if err != nil {
		return nil, err
	}

	var doc *models.Document
	if existing != nil {
		if existing.Status == models.DocumentStatusApproved {
			return nil, fmt.Errorf("%w: approved documents cannot be replaced", ErrInvalidState)
		}
		if err := s.docRepo.ReplaceDocumentFile(existing.ID, fileName, filePath); err != nil {
			return nil, err
		}
		doc, err = s.docRepo.GetDocumentByID(existing.ID)
		if err != nil {
			return nil, err
		}
	} else {
		doc, err = s.docRepo.CreateDocument(ownerID, vehicleID, docType, fileName, filePath)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return nil, fmt.Errorf("%w: document of type %s already exists for this vehicle", ErrConflict, docType)
			}
			return nil, err
		}
	}

	if err := s.vehicleRepo.RecomputeDocumentsUploaded(vehicleID); err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteDocument removes a document while the vehicle is still editable.
// It returns the removed document so the caller can delete the stored file.
func (s *ApprovalService) DeleteDocument(ownerID, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.docRepo.GetDocumentByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	if doc.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: document belongs to another account", ErrForbidden)
	}

	vehicle, err := s.vehicleRepo.GetVehicleByID(doc.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, doc.VehicleID)
	}
	if !vehicle.Editable() {
		return nil, fmt.Errorf("%w: documents can only be removed while the vehicle is in draft or rejected status", ErrInvalidState)
	}
	if doc.Status == models.DocumentStatusApproved {
		return nil, fmt.Errorf("%w: approved documents cannot be removed", ErrInvalidState)
	}

	if err := s.docRepo.DeleteDocument(documentID); err != nil {
		return nil, err
	}
	if err := s.vehicleRepo.RecomputeDocumentsUploaded(doc.VehicleID); err != nil {
		return nil, err
	}

	return doc, nil
}

// GetDocumentForDownload returns a document after an access check. Owners may
// download their own documents; staff pass allowAny.
func (s *ApprovalService) GetDocumentForDownload(callerID, documentID uuid.UUID, allowAny bool) (*models.Document, error) {
	doc, err := s.docRepo.GetDocumentByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	if !allowAny && doc.OwnerID != callerID {
		return nil, fmt.Errorf("%w: document belongs to another account", ErrForbidden)
	}
	return doc, nil
}

// SubmitForReview moves a vehicle from draft or rejected to pending. All
// required document types must be uploaded and none may still be rejected:
// a rejected document has to be replaced before the vehicle can be
// resubmitted. Non-approved documents are reset to pending so staff review
// the resubmission from a clean slate.
func (s *ApprovalService) SubmitForReview(ownerID, vehicleID uuid.UUID) (*models.Vehicle, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vehicle, err := s.vehicleRepo.GetVehicleForUpdateTx(tx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	}
	if vehicle.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: vehicle belongs to another account", ErrForbidden)
	}
	if !vehicle.Editable() {
		return nil, fmt.Errorf("%w: vehicle is already %s", ErrInvalidState, vehicle.Status)
	}

	docs, err := s.docRepo.ListDocumentsByVehicleTx(tx, vehicleID)
	if err != nil {
		return nil, err
	}
	uploaded := make(map[models.DocumentType]models.DocumentStatus, len(docs))
	for _, d := range docs {
		uploaded[d.Type] = d.Status
	}
	for _, required := range models.RequiredDocumentTypes {
		status, ok := uploaded[required]
		if !ok {
			return nil, fmt.Errorf("%w: missing required document %s", ErrValidation, required)
		}
		if status == models.DocumentStatusRejected {
			return nil, fmt.Errorf("%w: %s was rejected and must be replaced before resubmitting", ErrInvalidState, required)
		}
	}

	if err := s.docRepo.MarkDocumentsPendingTx(tx, vehicleID); err != nil {
		return nil, err
	}
	if err := s.vehicleRepo.UpdateVehicleStatusTx(tx, vehicleID, models.VehicleStatusPending); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}

	return s.vehicleRepo.GetVehicleByID(vehicleID)
}

// ReviewDocument records a staff verdict on a single document. The vehicle
// must be pending and the document must not have been decided yet; a verdict
// stands until the owner replaces the document.
// Rejections require remarks. The owner notification is
// queued in the same transaction.
func (s *ApprovalService) ReviewDocument(reviewerID, documentID uuid.UUID, approve bool, remarks string) (*models.Document, error) {
	doc, err := s.docRepo.GetDocumentByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	if doc.Status != models.DocumentStatusPending {
		return nil, fmt.Errorf("%w: document has already been %s", ErrInvalidState, doc.Status)
	}

	if !approve && remarks == "" {
		return nil, fmt.Errorf("%w: remarks are required when rejecting a document", ErrValidation)
	}

	owner, err := s.profileRepo.GetProfileByID(doc.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: document owner %s", ErrNotFound, doc.OwnerID)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vehicle, err := s.vehicleRepo.GetVehicleForUpdateTx(tx, doc.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, doc.VehicleID)
	}
	if vehicle.Status != models.VehicleStatusPending {
		return nil, fmt.Errorf("%w: documents can only be reviewed while the vehicle is pending", ErrInvalidState)
	}

	status := models.DocumentStatusApproved
	notifType := models.NotificationDocumentVerified
	title := "Document verified"
	message := fmt.Sprintf("Your %s for vehicle %s has been verified.", doc.Type, vehicle.ChassisNumber)
	if !approve {
		status = models.DocumentStatusRejected
		notifType = models.NotificationDocumentRejected
		title = "Document rejected"
		message = fmt.Sprintf("Your %s for vehicle %s was rejected. Remarks: %s", doc.Type, vehicle.ChassisNumber, remarks)
	}

	if err := s.docRepo.ReviewDocumentTx(tx, documentID, status, remarks, reviewerID); err != nil {
		return nil, err
	}

	documentRef := uuid.NullUUID{UUID: documentID, Valid: true}
	if err := s.notifSvc.QueueTx(tx, notifType, title, message, owner.ID, owner.Email, documentRef); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit document review: %w", err)
	}

	return s.docRepo.GetDocumentByID(documentID)
}

// DecideVehicle records the final staff verdict on a pending vehicle.
// Approval requires every document to be approved; rejection requires at
// least one rejected document. The vehicle row is locked so concurrent
// decisions serialise.
func (s *ApprovalService) DecideVehicle(reviewerID, vehicleID uuid.UUID, approve bool) (*models.Vehicle, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vehicle, err := s.vehicleRepo.GetVehicleForUpdateTx(tx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	}
	if vehicle.Status != models.VehicleStatusPending {
		return nil, fmt.Errorf("%w: vehicle is %s, only pending vehicles can be decided", ErrInvalidState, vehicle.Status)
	}

	docs, err := s.docRepo.ListDocumentsByVehicleTx(tx, vehicleID)
	if err != nil {
		return nil, err
	}

	approved := 0
	rejected := 0
	for _, d := range docs {
		switch d.Status {
		case models.DocumentStatusApproved:
			approved++
		case models.DocumentStatusRejected:
			rejected++
		}
	}

	var status models.VehicleStatus
	var notifType models.NotificationType
	var title, message string
	if approve {
		if approved != len(models.RequiredDocumentTypes) || rejected > 0 {
			return nil, fmt.Errorf("%w: all documents must be approved before the vehicle can be approved", ErrInvalidState)
		}
		status = models.VehicleStatusApproved
		notifType = models.NotificationVehicleApproved
		title = "Vehicle approved"
		message = fmt.Sprintf("All documents for vehicle %s have been verified. You can now request your invoice.", vehicle.ChassisNumber)
	} else {
		if rejected == 0 {
			return nil, fmt.Errorf("%w: at least one document must be rejected before the vehicle can be rejected", ErrInvalidState)
		}
		status = models.VehicleStatusRejected
		notifType = models.NotificationVehicleRejected
		title = "Vehicle rejected"
		message = fmt.Sprintf("The submission for vehicle %s was rejected. Review the document remarks and resubmit.", vehicle.ChassisNumber)
	}

	owner, err := s.profileRepo.GetProfileByID(vehicle.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: vehicle owner %s", ErrNotFound, vehicle.OwnerID)
	}

	if err := s.vehicleRepo.UpdateVehicleStatusTx(tx, vehicleID, status); err != nil {
		return nil, err
	}
	if err := s.notifSvc.QueueTx(tx, notifType, title, message, owner.ID, owner.Email, uuid.NullUUID{}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vehicle decision: %w", err)
	}

	return s.vehicleRepo.GetVehicleByID(vehicleID)
}
