package repository

import (
	"go-pedidos-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByCategory(category model.ProductCategory) ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	Update(product *model.Product) error
	Delete(id uuid.UUID) error
	ReplaceComboItems(comboID uuid.UUID, items []model.ComboItem) error
	// CombosUsingComponent returns every combo that references the given
	// product as a component. Used to block deletes.
	CombosUsingComponent(componentID uuid.UUID) ([]model.Product, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) FindAll() ([]model.Product, error) {
	var products []model.Product
	err := r.db.Preload("ComboItems").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByCategory(category model.ProductCategory) ([]model.Product, error) {
	var products []model.Product
	err := r.db.Preload("ComboItems").Where("category = ?", category).Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.Preload("ComboItems").First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(product *model.Product) error {
	return r.db.Save(product).Error
}

func (r *productRepo) Delete(id uuid.UUID) error {
	if err := r.db.Where("combo_id = ?", id).Delete(&model.ComboItem{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&model.Product{}, "id = ?", id).Error
}

func (r *productRepo) ReplaceComboItems(comboID uuid.UUID, items []model.ComboItem) error {
	if err := r.db.Where("combo_id = ?", comboID).Delete(&model.ComboItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].ComboID = comboID
	}
	return r.db.Create(&items).Error
}

func (r *productRepo) CombosUsingComponent(componentID uuid.UUID) ([]model.Product, error) {
	var combos []model.Product
	err := r.db.
		Joins("JOIN combo_items ON combo_items.combo_id = products.id").
		Where("combo_items.component_id = ?", componentID).
		Find(&combos).Error
	return combos, err
}
