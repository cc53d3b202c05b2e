package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "product:create"
	Name string `gorm:"type:varchar(100)" json:"name"`                     // e.g., "Create Product"
}

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	{Code: "user:update_privilege", Name: "Update User Privileges"},
	// Product management
	{Code: "product:view", Name: "View Product"},
	{Code: "product:create", Name: "Create Product"},
	{Code: "product:update", Name: "Update Product"},
	{Code: "product:delete", Name: "Delete Product"},
	// Point of sale
	{Code: "stock:sell", Name: "Sell Product"},
	{Code: "stock:cancel", Name: "Cancel Sale"},
	{Code: "stock:adjust", Name: "Adjust Stock"},
	// Orders
	{Code: "order:view", Name: "View Order"},
	{Code: "order:create", Name: "Create Order"},
	{Code: "order:update", Name: "Update Order"},
	{Code: "order:delete", Name: "Delete Order"},
	// Clients
	{Code: "client:view", Name: "View Client"},
	{Code: "client:create", Name: "Create Client"},
	{Code: "client:update", Name: "Update Client"},
	{Code: "client:delete", Name: "Delete Client"},
	// Dashboard
	{Code: "dashboard:view", Name: "View Dashboard"},
}
