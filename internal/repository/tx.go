package repository

import (
	"go-pedidos-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockTx is the transactional handle the stock ledger and the order engine
// mutate through. Every method runs inside the surrounding transaction;
// returning an error from the RunInTx callback rolls back everything,
// including movements already recorded.
type StockTx interface {
	// LockProduct loads a product under a row lock held until commit.
	LockProduct(id uuid.UUID) (*model.Product, error)
	ComboItems(comboID uuid.UUID) ([]model.ComboItem, error)
	UpdateProductStock(id uuid.UUID, stock, soldCount int) error
	RecordMovement(m *model.StockMovement) error

	GetOrder(id uuid.UUID) (*model.Order, error)
	CreateOrder(o *model.Order) error
	ReplaceOrderItems(orderID uuid.UUID, items []model.OrderItem) error
	DeleteOrder(id uuid.UUID) error
}

// TxRunner opens the transaction scope ledger/engine operations run in.
type TxRunner interface {
	RunInTx(fn func(tx StockTx) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) RunInTx(fn func(tx StockTx) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStockTx{tx: tx})
	})
}

type gormStockTx struct {
	tx *gorm.DB
}

// LockProduct menggunakan Pessimistic Locking (FOR UPDATE) supaya operasi
// read-check-write terhadap product yang sama tetap terisolasi.
func (s *gormStockTx) LockProduct(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := s.tx.Set("gorm:query_option", "FOR UPDATE").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *gormStockTx) ComboItems(comboID uuid.UUID) ([]model.ComboItem, error) {
	var items []model.ComboItem
	err := s.tx.Where("combo_id = ?", comboID).Order("component_id ASC").Find(&items).Error
	return items, err
}

func (s *gormStockTx) UpdateProductStock(id uuid.UUID, stock, soldCount int) error {
	return s.tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      stock,
			"sold_count": soldCount,
		}).Error
}

func (s *gormStockTx) RecordMovement(m *model.StockMovement) error {
	return s.tx.Create(m).Error
}

// GetOrder mengunci row order (FOR UPDATE) sebelum membaca line items,
// supaya dua update/delete bersamaan terhadap order yang sama tidak
// menghitung diff dari items yang sudah basi.
func (s *gormStockTx) GetOrder(id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := s.tx.Set("gorm:query_option", "FOR UPDATE").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := s.tx.Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *gormStockTx) CreateOrder(o *model.Order) error {
	return s.tx.Create(o).Error
}

func (s *gormStockTx) ReplaceOrderItems(orderID uuid.UUID, items []model.OrderItem) error {
	if err := s.tx.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = 0
		items[i].OrderID = orderID
	}
	return s.tx.Create(&items).Error
}

func (s *gormStockTx) DeleteOrder(id uuid.UUID) error {
	if err := s.tx.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	return s.tx.Delete(&model.Order{}, "id = ?", id).Error
}
