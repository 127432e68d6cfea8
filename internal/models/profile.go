package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a portal user role
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether the given role is recognised
func ValidRole(r Role) bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// AccountStatus represents the activation state of a profile
type AccountStatus string

const (
	AccountPendingActivation AccountStatus = "pending_activation"
	AccountActive            AccountStatus = "active"
	AccountDisabled          AccountStatus = "disabled"
	AccountSuspended         AccountStatus = "suspended"
)

// ValidAccountStatus reports whether the given status is recognised
func ValidAccountStatus(s AccountStatus) bool {
	switch s {
	case AccountPendingActivation, AccountActive, AccountDisabled, AccountSuspended:
		return true
	}
	return false
}

// Profile represents a portal account
type Profile struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	FullName      string        `json:"full_name" db:"full_name"`
	Email         string        `json:"email" db:"email"`
	Phone         NullString    `json:"phone,omitempty" db:"phone"`
	Company       NullString    `json:"company,omitempty" db:"company"`
	Role          Role          `json:"role" db:"role"`
	AccountStatus AccountStatus `json:"account_status" db:"account_status"`
	PasswordHash  string        `json:"-" db:"password_hash"`
	LastLoginAt   NullTime      `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// AuditLog represents an audit trail entry for staff/admin actions
type AuditLog struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	ActorID    uuid.NullUUID `json:"actor_id,omitempty" db:"actor_id"`
	Action     string        `json:"action" db:"action"`
	EntityType NullString    `json:"entity_type,omitempty" db:"entity_type"`
	EntityID   uuid.NullUUID `json:"entity_id,omitempty" db:"entity_id"`
	IPAddress  NullString    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  NullString    `json:"user_agent,omitempty" db:"user_agent"`
	Details    NullString    `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}
