package model

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle audit actions
const (
	ActionCreate     = "CREATE"
	ActionUpdate     = "UPDATE"
	ActionSoftDelete = "SOFT_DELETE"
	ActionRestore    = "RESTORE"
	ActionHardDelete = "HARD_DELETE"
)

// AuditLog tracks Who, What, and When for lifecycle transitions
type AuditLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for automated actors
	User         *User      `gorm:"foreignKey:UserID" json:"user"`
	Action       string     `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceKind string     `gorm:"type:varchar(50);not null;index" json:"resource_kind"`
	ResourceID   string     `gorm:"type:varchar(50);index" json:"resource_id"`
	Details      string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}
