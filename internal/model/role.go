package model

// Role represents an admin role with associated permissions
type Role struct {
	Base
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // Prevent deletion of built-in roles
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
}

// Permission represents a single permission that can be assigned to roles.
// Group is only a partition key for the matrix display, not an entity of
// its own.
type Permission struct {
	Base
	Code  string `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "products.write"
	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Group string `gorm:"type:varchar(50);not null;index" json:"group"` // "products", "categories"...
}
