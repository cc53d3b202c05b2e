package model

import "github.com/google/uuid"

// MovementType classifies why a product's stock changed.
type MovementType string

const (
	MovementSale        MovementType = "SALE"
	MovementCancel      MovementType = "CANCEL"
	MovementOrderCreate MovementType = "ORDER_CREATE"
	MovementOrderUpdate MovementType = "ORDER_UPDATE"
	MovementOrderDelete MovementType = "ORDER_DELETE"
	MovementManual      MovementType = "MANUAL"
)

// StockMovement is an append-only audit row written inside the same
// transaction as the stock mutation it records.
type StockMovement struct {
	BaseModel
	ProductID uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product     `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Type      MovementType `gorm:"type:varchar(20);not null;index" json:"type"`
	// Quantity is signed: positive restores stock, negative consumes it.
	Quantity   int `gorm:"not null" json:"quantity"`
	StockAfter int `gorm:"not null" json:"stock_after"`
	// OrderID is set for movements caused by order lifecycle operations.
	OrderID *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
}
