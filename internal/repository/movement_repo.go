package repository

import (
	"time"

	"go-pedidos-api/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MovementRepository interface {
	GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats() (*DashboardStats, error)
	GetTopSold(limit int) ([]TopSoldProduct, error)
	FindAll() ([]model.StockMovement, error)
	FindByProduct(productID uuid.UUID) ([]model.StockMovement, error)
	FindByOrder(orderID uuid.UUID) ([]model.StockMovement, error)
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

// TopSoldProduct ranks products by sold count
type TopSoldProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	SoldCount int       `json:"sold_count"`
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

func (r *movementRepo) GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	// Aggregate movements per hari: positive quantity = inbound (restore),
	// negative = outbound (consumed)
	rows, err := r.db.Model(&model.StockMovement{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, nil
}

func (r *movementRepo) GetDashboardStats() (*DashboardStats, error) {
	var stats DashboardStats

	if err := r.db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	// Low Stock Count (stock < 10)
	if err := r.db.Model(&model.Product{}).Where("stock < ?", 10).Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	// Total Valuation (SUM of stock * price); price decimal(12,2), hasilnya
	// di-scan ke decimal supaya tidak terpotong
	if err := r.db.Model(&model.Product{}).
		Select("COALESCE(SUM(stock * price), 0)").
		Scan(&stats.TotalValuation).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *movementRepo) GetTopSold(limit int) ([]TopSoldProduct, error) {
	var results []TopSoldProduct
	err := r.db.Model(&model.Product{}).
		Select("id as product_id, name, sold_count").
		Where("sold_count > 0").
		Order("sold_count DESC").
		Limit(limit).
		Scan(&results).Error
	return results, err
}

func (r *movementRepo) FindAll() ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.Preload("Product").Order("created_at DESC").Limit(500).Find(&movements).Error
	return movements, err
}

func (r *movementRepo) FindByProduct(productID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.Preload("Product").Where("product_id = ?", productID).
		Order("created_at DESC").Find(&movements).Error
	return movements, err
}

func (r *movementRepo) FindByOrder(orderID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.Preload("Product").Where("order_id = ?", orderID).
		Order("created_at ASC").Find(&movements).Error
	return movements, err
}
