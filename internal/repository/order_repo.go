package repository

import (
	"go-pedidos-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	FindAll() ([]model.Order, error)
	FindByID(id uuid.UUID) (*model.Order, error)
	FindByClient(clientID uuid.UUID) ([]model.Order, error)
	FindBySection(section string) ([]model.Order, error)
	CountByClient(clientID uuid.UUID) (int64, error)
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) FindAll() ([]model.Order, error) {
	var orders []model.Order
	err := r.db.Preload("Client").Preload("Items").Preload("Items.Product").
		Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) FindByID(id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("Client").Preload("Items").Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindByClient(clientID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.Preload("Items").Preload("Items.Product").
		Where("client_id = ?", clientID).
		Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) FindBySection(section string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.Preload("Client").Preload("Items").Preload("Items.Product").
		Where("service_section = ?", section).
		Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) CountByClient(clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Order{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}
