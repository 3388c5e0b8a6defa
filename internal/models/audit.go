package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntryDB represents an append-only audit log row
type AuditEntryDB struct {
	AuditID   uuid.UUID  `json:"audit_id" db:"audit_id"`
	ActorID   uuid.UUID  `json:"actor_id" db:"actor_id"`
	ChamaID   *uuid.UUID `json:"chama_id,omitempty" db:"chama_id"`
	Action    string     `json:"action" db:"action"`
	OldValue  []byte     `json:"old_value,omitempty" db:"old_value"`
	NewValue  []byte     `json:"new_value,omitempty" db:"new_value"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
