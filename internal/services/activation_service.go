package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/models"
)

// ActivationService handles the account activation workflow. New customer
// accounts start pending; the customer submits company verification
// documents and a staff reviewer approves or rejects the request.
type ActivationService struct {
	db             database.DB
	activationRepo *database.ActivationRepository
	profileRepo    *database.ProfileRepository
	notifSvc       *NotificationService
}

// NewActivationService creates a new ActivationService
func NewActivationService(
	db database.DB,
	activationRepo *database.ActivationRepository,
	profileRepo *database.ProfileRepository,
	notifSvc *NotificationService,
) *ActivationService {
	return &ActivationService{
		db:             db,
		activationRepo: activationRepo,
		profileRepo:    profileRepo,
		notifSvc:       notifSvc,
	}
}

// SubmitRequest files an activation request for a pending account. At most
// one pending request per user is allowed; the table enforces this with a
// partial unique index.
func (s *ActivationService) SubmitRequest(userID uuid.UUID, companyName, authorizationLetter, idDocument string) (*models.ActivationRequest, error) {
	if companyName == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}
	if authorizationLetter == "" || idDocument == "" {
		return nil, fmt.Errorf("%w: authorization letter and ID document are required", ErrValidation)
	}

	profile, err := s.profileRepo.GetProfileByID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, userID)
	}
	if profile.AccountStatus == models.AccountActive {
		return nil, fmt.Errorf("%w: account is already active", ErrInvalidState)
	}
	if profile.AccountStatus != models.AccountPendingActivation {
		return nil, fmt.Errorf("%w: account is %s and cannot request activation", ErrInvalidState, profile.AccountStatus)
	}

	latest, err := s.activationRepo.GetLatestRequestByUser(userID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Status == models.ActivationStatusPending {
		return nil, fmt.Errorf("%w: an activation request is already pending", ErrConflict)
	}

	request, err := s.activationRepo.CreateRequest(userID, companyName, authorizationLetter, idDocument)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: an activation request is already pending", ErrConflict)
		}
		return nil, err
	}

	return request, nil
}

// GetStatus returns the latest activation request for the user, or nil when
// none has been filed yet
func (s *ActivationService) GetStatus(userID uuid.UUID) (*models.ActivationRequest, error) {
	return s.activationRepo.GetLatestRequestByUser(userID)
}

// GetRequest returns an activation request by ID for staff review
func (s *ActivationService) GetRequest(requestID uuid.UUID) (*models.ActivationRequest, error) {
	request, err := s.activationRepo.GetRequestByID(requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activation request: %w", err)
	}
	if request == nil {
		return nil, fmt.Errorf("%w: activation request not found", ErrNotFound)
	}
	return request, nil
}

// ListPending returns pending activation requests for the staff queue
func (s *ActivationService) ListPending(limit, offset int) ([]*models.ActivationRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.activationRepo.ListPendingRequests(limit, offset)
}

// Review records the staff verdict on a pending activation request. Approval
// activates the account in the same transaction; rejection requires notes so
// the customer knows what to fix before resubmitting.
func (s *ActivationService) Review(reviewerID, requestID uuid.UUID, approve bool, notes string) (*models.ActivationRequest, error) {
	if !approve && notes == "" {
		return nil, fmt.Errorf("%w: notes are required when rejecting an activation request", ErrValidation)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := s.activationRepo.GetRequestForUpdateTx(tx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("%w: activation request %s", ErrNotFound, requestID)
	}
	if request.Status != models.ActivationStatusPending {
		return nil, fmt.Errorf("%w: activation request is already %s", ErrInvalidState, request.Status)
	}

	profile, err := s.profileRepo.GetProfileByID(request.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, request.UserID)
	}

	status := models.ActivationStatusApproved
	notifType := models.NotificationActivationApproved
	title := "Account activated"
	message := "Your CargoLink account has been activated. You can now register vehicles and upload documents."
	if !approve {
		status = models.ActivationStatusRejected
		notifType = models.NotificationActivationRejected
		title = "Activation rejected"
		message = fmt.Sprintf("Your account activation request was rejected. Notes: %s", notes)
	}

	if err := s.activationRepo.ReviewRequestTx(tx, requestID, status, notes, reviewerID); err != nil {
		return nil, err
	}

	if approve {
		if err := s.profileRepo.UpdateAccountStatusTx(tx, request.UserID, models.AccountActive); err != nil {
			return nil, err
		}
	}

	if err := s.notifSvc.QueueTx(tx, notifType, title, message, profile.ID, profile.Email, uuid.NullUUID{}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activation review: %w", err)
	}

	return s.activationRepo.GetRequestByID(requestID)
}
