package models

import (
	"time"

	"github.com/google/uuid"
)

// TurnMemberDB represents one member's slot in a chama's merry-go-round rotation
type TurnMemberDB struct {
	ChamaID          uuid.UUID `json:"chama_id" db:"chama_id"`
	MemberID         uuid.UUID `json:"member_id" db:"member_id"`
	Position         int       `json:"position" db:"position"`
	WithdrawalLocked bool      `json:"withdrawal_locked" db:"withdrawal_locked"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduleResponse is the rotation view for a chama
// swagger:model ScheduleResponse
type ScheduleResponse struct {
	// Members in rotation order
	Members []TurnMemberDB `json:"members"`

	// Member currently allowed to withdraw, absent when all are locked
	UnlockedMemberID *uuid.UUID `json:"unlocked_member_id,omitempty"`
}

// ScheduleErrorResponse represents an error response for schedule endpoints
// swagger:model ScheduleErrorResponse
type ScheduleErrorResponse struct {
	// Error message
	Error string `json:"error"`
}
