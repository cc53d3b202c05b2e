package model

// Client is a customer that places orders.
type Client struct {
	BaseModel
	Name    string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	TaxID   string `gorm:"type:varchar(30)" json:"tax_id"`
	Address string `gorm:"type:varchar(255)" json:"address"`
	Phone   string `gorm:"type:varchar(30)" json:"phone"`
	Email   string `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	// Section groups clients by the service area they belong to; order
	// access restriction by section is enforced by the API caller.
	Section string `gorm:"type:varchar(100);index" json:"section"`
}
