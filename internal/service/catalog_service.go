package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/repository"
	"go-pedidos-api/internal/ws"
	"go-pedidos-api/pkg/cache"
	"go-pedidos-api/pkg/logger"
	"go-pedidos-api/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const productCacheTTL = 5 * time.Minute

type CatalogService interface {
	CreateProduct(req *model.Product, userID string) error
	UpdateProduct(id uuid.UUID, req *model.Product, userID string) (*model.Product, error)
	DeleteProduct(id uuid.UUID, userID string) error
	GetProduct(id uuid.UUID) (*model.Product, error)
	GetAllProducts() ([]model.Product, error)
	GetProductsByCategory(category model.ProductCategory) ([]model.Product, error)

	// Resolve turns a ProductRef into a loaded product, hitting the store
	// only when the ref is unresolved.
	Resolve(ref model.ProductRef) (*model.Product, error)
	// ExpandCombo returns the resolved constituents of a combo product, or
	// an empty slice for a plain product.
	ExpandCombo(productID uuid.UUID) ([]model.ResolvedComponent, error)
	// ComputeComboPrice sums component price * quantity across the
	// expansion. Informational only; the combo's stored price stays
	// authoritative for sales.
	ComputeComboPrice(productID uuid.UUID) (decimal.Decimal, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	cache       cache.Store
	wsHub       *ws.Hub
	log         *zap.Logger
}

func NewCatalogService(pRepo repository.ProductRepository, store cache.Store, hub *ws.Hub) CatalogService {
	return &catalogService{
		productRepo: pRepo,
		cache:       store,
		wsHub:       hub,
		log:         logger.Get(),
	}
}

func productCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func categoryCacheKey(category model.ProductCategory) string {
	return "products:category:" + string(category)
}

const allProductsCacheKey = "products:all"

// invalidate drops the per-product entry plus the list caches the product
// appears in. Called after every successful mutation.
func (s *catalogService) invalidate(id uuid.UUID, categories ...model.ProductCategory) {
	keys := []string{productCacheKey(id), allProductsCacheKey}
	for _, c := range categories {
		keys = append(keys, categoryCacheKey(c))
	}
	s.cache.Delete(context.Background(), keys...)
}

func (s *catalogService) validateProduct(req *model.Product) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return validationErrorf("field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	if req.Price.IsNegative() {
		return validationErrorf("price must not be negative")
	}
	if req.Category.HasFloor() && req.Stock < model.CleaningStockFloor {
		return validationErrorf("cleaning products require stock >= %d", model.CleaningStockFloor)
	}
	if req.IsCombo {
		if len(req.ComboItems) == 0 {
			return validationErrorf("combo products require at least one component")
		}
		for _, item := range req.ComboItems {
			if item.Quantity <= 0 {
				return validationErrorf("combo component quantity must be > 0")
			}
			component, err := s.productRepo.FindByID(item.ComponentID)
			if err != nil {
				return validationErrorf("combo component %s does not exist", item.ComponentID)
			}
			if component.IsCombo {
				return validationErrorf("combo component '%s' must not itself be a combo", component.Name)
			}
		}
	} else if len(req.ComboItems) > 0 {
		return validationErrorf("non-combo products must not declare components")
	}
	return nil
}

func (s *catalogService) CreateProduct(req *model.Product, userID string) error {
	if err := s.validateProduct(req); err != nil {
		return err
	}

	req.CreatedBy = userID
	req.UpdatedBy = userID

	if err := s.productRepo.Create(req); err != nil {
		return err
	}

	s.invalidate(req.ID, req.Category)
	s.broadcast("product_created", req, userID)
	return nil
}

func (s *catalogService) UpdateProduct(id uuid.UUID, req *model.Product, userID string) (*model.Product, error) {
	existing, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	oldCategory := existing.Category

	existing.Name = req.Name
	existing.Category = req.Category
	existing.Price = req.Price
	existing.Stock = req.Stock
	existing.IsCombo = req.IsCombo
	existing.ComboItems = req.ComboItems
	existing.UpdatedBy = userID

	if err := s.validateProduct(existing); err != nil {
		return nil, err
	}

	// ComboItems disimpan terpisah supaya update tidak menumpuk baris lama
	items := existing.ComboItems
	existing.ComboItems = nil
	if err := s.productRepo.Update(existing); err != nil {
		return nil, err
	}
	if err := s.productRepo.ReplaceComboItems(existing.ID, items); err != nil {
		return nil, err
	}
	existing.ComboItems = items

	s.invalidate(id, oldCategory, existing.Category)
	s.broadcast("product_updated", existing, userID)
	return existing, nil
}

func (s *catalogService) DeleteProduct(id uuid.UUID, userID string) error {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	combos, err := s.productRepo.CombosUsingComponent(id)
	if err != nil {
		return err
	}
	if len(combos) > 0 {
		names := make([]string, len(combos))
		for i, c := range combos {
			names[i] = c.Name
		}
		return fmt.Errorf("%w: %s", ErrProductInUse, strings.Join(names, ", "))
	}

	if err := s.productRepo.Delete(id); err != nil {
		return err
	}

	s.invalidate(id, product.Category)
	s.broadcast("product_deleted", product, userID)
	return nil
}

func (s *catalogService) GetProduct(id uuid.UUID) (*model.Product, error) {
	ctx := context.Background()
	if raw, ok := s.cache.Get(ctx, productCacheKey(id)); ok {
		var product model.Product
		if err := json.Unmarshal(raw, &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if raw, err := json.Marshal(product); err == nil {
		s.cache.Set(ctx, productCacheKey(id), raw, productCacheTTL)
	}
	return product, nil
}

func (s *catalogService) GetAllProducts() ([]model.Product, error) {
	ctx := context.Background()
	if raw, ok := s.cache.Get(ctx, allProductsCacheKey); ok {
		var products []model.Product
		if err := json.Unmarshal(raw, &products); err == nil {
			return products, nil
		}
	}

	products, err := s.productRepo.FindAll()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(products); err == nil {
		s.cache.Set(ctx, allProductsCacheKey, raw, productCacheTTL)
	}
	return products, nil
}

func (s *catalogService) GetProductsByCategory(category model.ProductCategory) ([]model.Product, error) {
	if !category.Valid() {
		return nil, validationErrorf("unknown category '%s'", category)
	}

	ctx := context.Background()
	if raw, ok := s.cache.Get(ctx, categoryCacheKey(category)); ok {
		var products []model.Product
		if err := json.Unmarshal(raw, &products); err == nil {
			return products, nil
		}
	}

	products, err := s.productRepo.FindByCategory(category)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(products); err == nil {
		s.cache.Set(ctx, categoryCacheKey(category), raw, productCacheTTL)
	}
	return products, nil
}

func (s *catalogService) Resolve(ref model.ProductRef) (*model.Product, error) {
	if ref.Resolved() {
		return ref.Product, nil
	}
	return s.GetProduct(ref.ID)
}

func (s *catalogService) ExpandCombo(productID uuid.UUID) ([]model.ResolvedComponent, error) {
	product, err := s.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if !product.IsCombo {
		return []model.ResolvedComponent{}, nil
	}

	resolved := make([]model.ResolvedComponent, 0, len(product.ComboItems))
	for _, item := range product.ComboItems {
		component, err := s.productRepo.FindByID(item.ComponentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Combo validity is only checked at write time; a removed
				// component surfaces here as a data-integrity error.
				return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, item.ComponentID)
			}
			return nil, err
		}
		resolved = append(resolved, model.ResolvedComponent{
			Product:  component,
			Quantity: item.Quantity,
		})
	}
	return resolved, nil
}

func (s *catalogService) ComputeComboPrice(productID uuid.UUID) (decimal.Decimal, error) {
	components, err := s.ExpandCombo(productID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, c := range components {
		total = total.Add(c.Product.Price.Mul(decimal.NewFromInt(int64(c.Quantity))))
	}
	return total, nil
}

// broadcast is best effort, same non-blocking contract as the stock
// broadcast.
func (s *catalogService) broadcast(action string, product *model.Product, userID string) {
	payload := map[string]interface{}{
		"type":   "catalog_update",
		"action": action,
		"product": map[string]interface{}{
			"id":       product.ID,
			"name":     product.Name,
			"category": product.Category,
			"stock":    product.Stock,
			"price":    product.Price,
			"is_combo": product.IsCombo,
		},
		"user_id": userID,
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal catalog broadcast", zap.Error(err))
		return
	}
	select {
	case s.wsHub.Broadcast <- msg:
	default:
		s.log.Warn("catalog broadcast dropped, hub buffer full")
	}
}
