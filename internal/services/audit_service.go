package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/utils"
)

// AuditService records portal events in the audit_logs table
type AuditService struct {
	db      database.DB
	enabled bool
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB, enabled bool) *AuditService {
	return &AuditService{
		db:      db,
		enabled: enabled,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	ActorID    *uuid.UUID             // nil for pre-authentication events
	Action     string                 // e.g. "login", "vehicle_submit", "document_review"
	EntityType string                 // e.g. "vehicle", "document", "invoice", "profile"
	EntityID   *uuid.UUID             // affected entity, nil when not applicable
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{} // stored as JSONB
}

// LogLogin records a login attempt
func (s *AuditService) LogLogin(actorID *uuid.UUID, email, ipAddress, userAgent string, success bool, reason string) error {
	details := map[string]interface{}{
		"email":       email,
		"success":     success,
		"device_info": utils.ParseUserAgent(userAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	action := "login_failed"
	if success {
		action = "login"
	}

	return s.logEvent(AuditEvent{
		ActorID:    actorID,
		Action:     action,
		EntityType: "profile",
		EntityID:   actorID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogRegistration records a new account registration
func (s *AuditService) LogRegistration(actorID uuid.UUID, email, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		ActorID:    &actorID,
		Action:     "register",
		EntityType: "profile",
		EntityID:   &actorID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"email":       email,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogEntityAction records a workflow action against an entity
func (s *AuditService) LogEntityAction(actorID uuid.UUID, action, entityType string, entityID uuid.UUID, ipAddress, userAgent string, details map[string]interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return s.logEvent(AuditEvent{
		ActorID:    &actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   &entityID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// logEvent is the internal method that writes to the audit_logs table
func (s *AuditService) logEvent(event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err = s.db.Exec(
		query,
		uuid.New(),
		event.ActorID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetRecentEvents retrieves recent audit events for an actor
func (s *AuditService) GetRecentEvents(actorID uuid.UUID, limit int) ([]map[string]interface{}, error) {
	query := `
		SELECT action, entity_type, entity_id, ip_address, details, created_at
		FROM audit_logs
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	defer rows.Close()

	var events []map[string]interface{}
	for rows.Next() {
		var (
			action     string
			entityType string
			entityID   uuid.NullUUID
			ipAddress  string
			details    []byte
			createdAt  interface{}
		)
		if err := rows.Scan(&action, &entityType, &entityID, &ipAddress, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		event := map[string]interface{}{
			"action":      action,
			"entity_type": entityType,
			"ip_address":  ipAddress,
			"created_at":  createdAt,
		}
		if entityID.Valid {
			event["entity_id"] = entityID.UUID
		}
		if len(details) > 0 {
			var parsed map[string]interface{}
			if err := json.Unmarshal(details, &parsed); err == nil {
				event["details"] = parsed
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
