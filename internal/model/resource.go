package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind identifies a lifecycle-managed resource collection.
type Kind string

const (
	KindCategory   Kind = "category"
	KindBrand      Kind = "brand"
	KindColor      Kind = "color"
	KindProduct    Kind = "product"
	KindPermission Kind = "permission"
	KindRole       Kind = "role"
	KindVoucher    Kind = "voucher"
	KindInventory  Kind = "inventory"
)

// Base holds the identity and lifecycle columns shared by every managed
// entity. A row with deleted_at set is Trashed (visible only in the trash
// bin); a removed row is Purged. Transitions are owned by the lifecycle
// service — nothing else writes deleted_at.
type Base struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// GetID returns the primary key.
func (b Base) GetID() uuid.UUID { return b.ID }

// Trashed reports whether the row is soft-deleted.
func (b Base) Trashed() bool { return b.DeletedAt.Valid }

// Entity is implemented by every lifecycle-managed model via Base.
type Entity interface {
	GetID() uuid.UUID
	Trashed() bool
}
