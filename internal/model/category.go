package model

import (
	"github.com/google/uuid"
)

// Category is a node in the catalog hierarchy. ParentID is a nullable
// self-reference; following ParentID links must always terminate (the
// category service rejects re-parenting that would create a cycle).
type Category struct {
	Base
	Name        string     `gorm:"type:varchar(255);not null;index" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Parent      *Category  `gorm:"foreignKey:ParentID" json:"-"`
}
