package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Brand represents a product manufacturer.
type Brand struct {
	Base
	Name string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Slug string `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
}

// Color is a product color swatch.
type Color struct {
	Base
	Name    string `gorm:"type:varchar(100);not null" json:"name"`
	HexCode string `gorm:"type:varchar(7);not null" json:"hex_code"` // "#RRGGBB"
}

// Product is a catalog item.
type Product struct {
	Base
	SKU         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name        string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	BrandID     *uuid.UUID      `gorm:"type:uuid;index" json:"brand_id"`
	Brand       *Brand          `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	ColorID     *uuid.UUID      `gorm:"type:uuid;index" json:"color_id"`
	Color       *Color          `gorm:"foreignKey:ColorID" json:"color,omitempty"`
}

// Voucher is a discount code.
type Voucher struct {
	Base
	Code       string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Discount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	StartsAt   time.Time       `json:"starts_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	UsageLimit int             `gorm:"type:int;default:0" json:"usage_limit"`
}

// Inventory tracks stock of a product at a warehouse.
type Inventory struct {
	Base
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Warehouse string          `gorm:"type:varchar(255);not null" json:"warehouse"`
	Quantity  int             `gorm:"type:int;default:0;not null" json:"quantity"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
}
