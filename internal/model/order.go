package model

import (
	"github.com/google/uuid"
)

// Order is a client order ("pedido"). Line items reserve stock at creation
// time; updates apply only the signed quantity delta per product and delete
// restores everything. The order engine owns the write path exclusively.
type Order struct {
	BaseModel
	ClientID       uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id" validate:"uuid_required"`
	Client         *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ServiceSection string    `gorm:"type:varchar(100);index" json:"service_section"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items" validate:"required,min=1,dive"`
}

// OrderItem is one {product, quantity} line within an order.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Quantity  int       `gorm:"not null" json:"quantity" validate:"required,gt=0"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// QuantityByProduct collapses line items into a product -> quantity map.
// Duplicate product lines are summed.
func QuantityByProduct(items []OrderItem) map[uuid.UUID]int {
	m := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		m[it.ProductID] += it.Quantity
	}
	return m
}
