package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a member's role within one chama.
type Role string

// Chama roles
const (
	RoleAdmin     Role = "admin"
	RoleTreasurer Role = "treasurer"
	RoleSecretary Role = "secretary"
	RoleMember    Role = "member"
)

// Valid reports whether the role is one of the supported chama roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTreasurer, RoleSecretary, RoleMember:
		return true
	}
	return false
}

// RoleAssignmentDB represents a role assignment row in the database
type RoleAssignmentDB struct {
	ChamaID   uuid.UUID `json:"chama_id" db:"chama_id"`
	MemberID  uuid.UUID `json:"member_id" db:"member_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AssignRoleRequest is the JSON body for assigning a role
// swagger:model AssignRoleRequest
type AssignRoleRequest struct {
	// Member whose role changes
	// required: true
	MemberID uuid.UUID `json:"member_id" validate:"required"`

	// New role
	// required: true
	// example: treasurer
	Role Role `json:"role" validate:"required"`
}

// AssignRoleResponse confirms a role assignment
// swagger:model AssignRoleResponse
type AssignRoleResponse struct {
	// Success message
	// example: Role assigned
	Message string `json:"message"`
}

// RoleErrorResponse represents an error response for role endpoints
// swagger:model RoleErrorResponse
type RoleErrorResponse struct {
	// Error message
	Error string `json:"error"`
}
