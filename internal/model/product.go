package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCategory determines the stock rules applied to a product.
type ProductCategory string

const (
	// CategoryCleaning products carry a hard stock floor: stock must stay >= 1
	// after every sale/order mutation.
	CategoryCleaning ProductCategory = "CLEANING"
	// CategoryMaintenance products allow back-orders: stock may go negative
	// through the point-of-sale path.
	CategoryMaintenance ProductCategory = "MAINTENANCE"
)

// CleaningStockFloor is the minimum stock a cleaning product must retain.
const CleaningStockFloor = 1

func (c ProductCategory) Valid() bool {
	return c == CategoryCleaning || c == CategoryMaintenance
}

// HasFloor reports whether sales against this category are blocked once the
// stock floor would be violated.
func (c ProductCategory) HasFloor() bool {
	return c == CategoryCleaning
}

type Product struct {
	BaseModel
	Name      string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category  ProductCategory `gorm:"type:varchar(20);not null;index" json:"category" validate:"required,oneof=CLEANING MAINTENANCE"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int             `gorm:"default:0" json:"stock"`
	SoldCount int             `gorm:"default:0" json:"sold_count"`
	IsCombo   bool            `gorm:"default:false" json:"is_combo"`

	// ComboItems is non-empty only when IsCombo is true. Components must be
	// existing non-combo products; validated at write time, not enforced by
	// a cascading constraint afterward.
	ComboItems []ComboItem `gorm:"foreignKey:ComboID" json:"combo_items,omitempty"`
}

// ComboItem links a combo product to one of its constituent products with a
// fixed quantity multiplier.
type ComboItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComboID     uuid.UUID `gorm:"type:uuid;not null;index" json:"combo_id"`
	ComponentID uuid.UUID `gorm:"type:uuid;not null;index" json:"component_id" validate:"uuid_required"`
	Quantity    int       `gorm:"not null" json:"quantity" validate:"required,gt=0"`

	Component *Product `gorm:"foreignKey:ComponentID" json:"component,omitempty"`
}

// ProductRef is either a bare product id or a fully resolved product record.
// Callers that need fields beyond the id call Resolve on the catalog first;
// nothing downstream inspects types at runtime.
type ProductRef struct {
	ID      uuid.UUID
	Product *Product
}

func RefByID(id uuid.UUID) ProductRef {
	return ProductRef{ID: id}
}

func RefResolved(p *Product) ProductRef {
	return ProductRef{ID: p.ID, Product: p}
}

// Resolved reports whether the full product record is attached.
func (r ProductRef) Resolved() bool {
	return r.Product != nil
}

// ResolvedComponent is a combo constituent with its product record loaded,
// produced by combo expansion.
type ResolvedComponent struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
}
